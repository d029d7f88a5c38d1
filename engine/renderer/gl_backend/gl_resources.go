package gl_backend

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

type buffer struct {
	*renderer.Resource
	id    uint32
	usage renderer.BufferUsage
	size  int
}

func (b *buffer) Size() int                     { return b.size }
func (b *buffer) Usage() renderer.BufferUsage { return b.usage }

// glUploadTarget is the bind point used to fill a buffer. It must stay outside vertex array
// state; index buffers reach ELEMENT_ARRAY_BUFFER only in CreateVertexArray.
func glUploadTarget(renderer.BufferUsage) uint32 {
	return gl.COPY_WRITE_BUFFER
}

func (b *backend) CreateBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	var id uint32
	gl.GenBuffers(1, &id)
	if id == 0 {
		return nil, errors.Errorf("glGenBuffers returned no name for %q", desc.Label)
	}

	target := glUploadTarget(desc.Usage)
	gl.BindBuffer(target, id)
	gl.BufferData(target, len(desc.Data), gl.Ptr(desc.Data), gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)
	runtime.KeepAlive(desc.Data)

	return &buffer{
		Resource: renderer.NewResource(renderer.ResourceKindBuffer, desc.Label, func() {
			gl.DeleteBuffers(1, &id)
		}),
		id:    id,
		usage: desc.Usage,
		size:  len(desc.Data),
	}, nil
}

type texture struct {
	*renderer.Resource
	id            uint32
	width, height int
	format        renderer.TextureFormat
}

func (t *texture) Width() int                     { return t.width }
func (t *texture) Height() int                    { return t.height }
func (t *texture) Format() renderer.TextureFormat { return t.format }

func (b *backend) CreateTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return nil, errors.Errorf("glGenTextures returned no name for %q", desc.Label)
	}

	internal, format := glPixelFormat(desc.Format)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	// RGB rows are not 4-byte aligned for odd widths.
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height),
		0, format, gl.UNSIGNED_BYTE, gl.Ptr(desc.Pixels))
	runtime.KeepAlive(desc.Pixels)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(desc.Sampler.WrapU))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(desc.Sampler.WrapV))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glMinFilter(desc.Sampler.MinFilter, desc.Sampler.MipmapFilter, desc.GenerateMipmaps))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glMagFilter(desc.Sampler.MagFilter))
	if desc.GenerateMipmaps {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	b.restoreTextureUnit0()

	return &texture{
		Resource: renderer.NewResource(renderer.ResourceKindTexture, desc.Label, func() {
			gl.DeleteTextures(1, &id)
		}),
		id:     id,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
	}, nil
}

type vertexArray struct {
	*renderer.Resource
	id   uint32
	desc renderer.VertexArrayDescriptor
}

func (v *vertexArray) Descriptor() renderer.VertexArrayDescriptor { return v.desc }

func (b *backend) CreateVertexArray(desc renderer.VertexArrayDescriptor) (renderer.VertexArray, error) {
	for _, a := range desc.Attributes {
		if _, ok := a.Buffer.(*buffer); !ok || a.Buffer.Released() {
			return nil, errors.Errorf("attribute %d does not reference a live GL buffer", a.Location)
		}
		if _, ok := glComponentType(a.ComponentType); !ok {
			return nil, errors.Errorf("attribute %d has unsupported component type %s", a.Location, a.ComponentType)
		}
	}
	var ib *buffer
	if desc.Indices != nil {
		var ok bool
		if ib, ok = desc.Indices.(*buffer); !ok || ib.Released() {
			return nil, errors.New("index buffer is not a live GL buffer")
		}
	}

	var id uint32
	gl.GenVertexArrays(1, &id)
	if id == 0 {
		return nil, errors.Errorf("glGenVertexArrays returned no name for %q", desc.Label)
	}
	gl.BindVertexArray(id)
	for _, a := range desc.Attributes {
		ct, _ := glComponentType(a.ComponentType)
		gl.BindBuffer(gl.ARRAY_BUFFER, a.Buffer.(*buffer).id)
		gl.VertexAttribPointerWithOffset(uint32(a.Location), int32(a.Components), ct, a.Normalized, int32(a.Stride), uintptr(a.Offset))
		gl.EnableVertexAttribArray(uint32(a.Location))
	}
	if ib != nil {
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.id)
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	b.restoreVertexArray()

	return &vertexArray{
		Resource: renderer.NewResource(renderer.ResourceKindVertexArray, desc.Label, func() {
			gl.DeleteVertexArrays(1, &id)
		}),
		id:   id,
		desc: desc,
	}, nil
}

type program struct {
	*renderer.Resource
	backend  *backend
	id       uint32
	valid    bool
	uniforms *shader.Uniforms
	// locations caches glGetUniformLocation; -1 marks names the program does not use.
	locations map[string]int32
}

func (p *program) Key() string                         { return p.Label() }
func (p *program) Valid() bool                         { return p.valid && !p.Released() }
func (p *program) Use()                                { p.backend.UseProgram(p) }
func (p *program) SetVec2(name string, x, y float32)    { p.uniforms.SetVec2(name, x, y) }
func (p *program) SetVec3(name string, x, y, z float32) { p.uniforms.SetVec3(name, x, y, z) }
func (p *program) SetMat4(name string, m [16]float32)   { p.uniforms.SetMat4(name, m) }
func (p *program) SetInt(name string, v int32)          { p.uniforms.SetInt(name, v) }

func (p *program) location(name string) int32 {
	if loc, ok := p.locations[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.locations[name] = loc
	return loc
}

// upload pushes every stored uniform to the program, which must be current.
func (p *program) upload() {
	for name, v := range p.uniforms.Snapshot() {
		loc := p.location(name)
		if loc < 0 {
			continue
		}
		switch v.Kind {
		case shader.UniformVec2:
			gl.Uniform2f(loc, v.Floats[0], v.Floats[1])
		case shader.UniformVec3:
			gl.Uniform3f(loc, v.Floats[0], v.Floats[1], v.Floats[2])
		case shader.UniformMat4:
			gl.UniformMatrix4fv(loc, 1, false, &v.Floats[0])
		case shader.UniformInt:
			gl.Uniform1i(loc, v.Int)
		}
	}
}

func compileShader(kind uint32, source string) (uint32, error) {
	id := gl.CreateShader(kind)
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csource, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logSize int32
		gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logSize)
		buf := make([]byte, logSize+1)
		gl.GetShaderInfoLog(id, int32(len(buf)), &logSize, &buf[0])
		gl.DeleteShader(id)
		return 0, errors.Errorf("failed to compile shader: %s", trimInfoLog(buf[:logSize]))
	}
	return id, nil
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSource)
	if err != nil {
		return 0, errors.Wrap(err, "vertex shader")
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSource)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, errors.Wrap(err, "fragment shader")
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	gl.LinkProgram(id)
	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logSize int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logSize)
		buf := make([]byte, logSize+1)
		gl.GetProgramInfoLog(id, int32(len(buf)), &logSize, &buf[0])
		gl.DeleteProgram(id)
		return 0, errors.Errorf("failed to link program: %s", trimInfoLog(buf[:logSize]))
	}
	return id, nil
}

func (b *backend) CreateProgram(desc shader.ProgramDescriptor) shader.Program {
	p := &program{backend: b, uniforms: shader.NewUniforms(), locations: make(map[string]int32)}
	p.Resource = renderer.NewResource(renderer.ResourceKindProgram, desc.Key, func() {
		if p.id != 0 {
			gl.DeleteProgram(p.id)
			p.id = 0
		}
	})

	vertexSource, err := shader.ReadSource(desc.VertexPath)
	if err != nil {
		common.Logger().Error("failed to read shader program", "key", desc.Key, "error", err)
		return p
	}
	fragmentSource, err := shader.ReadSource(desc.FragmentPath)
	if err != nil {
		common.Logger().Error("failed to read shader program", "key", desc.Key, "error", err)
		return p
	}
	id, err := linkProgram(vertexSource, fragmentSource)
	if err != nil {
		common.Logger().Error("failed to build shader program", "key", desc.Key, "error", err)
		return p
	}
	p.id = id
	p.valid = true
	return p
}
