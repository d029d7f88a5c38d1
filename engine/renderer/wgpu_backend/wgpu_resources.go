package wgpu_backend

import (
	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/wgpu_backend/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const (
	uniformGroup   = 0
	textureGroup   = 1
	textureBinding = 0
	samplerBinding = 1
)

type buffer struct {
	*renderer.Resource
	gpu   *wgpu.Buffer
	usage renderer.BufferUsage
	size  int
	// data is kept for index buffers so u8 indices can be widened per vertex array.
	data []byte
}

func (b *buffer) Size() int                     { return b.size }
func (b *buffer) Usage() renderer.BufferUsage { return b.usage }

func (b *backend) CreateBuffer(desc renderer.BufferDescriptor) (renderer.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if desc.Usage == renderer.BufferUsageIndex {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}
	data := padTo4(desc.Data)
	gpu, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            desc.Label,
		Size:             uint64(len(data)),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	b.queue.WriteBuffer(gpu, 0, data)

	out := &buffer{gpu: gpu, usage: desc.Usage, size: len(desc.Data)}
	if desc.Usage == renderer.BufferUsageIndex {
		out.data = append([]byte(nil), desc.Data...)
	}
	out.Resource = renderer.NewResource(renderer.ResourceKindBuffer, desc.Label, gpu.Release)
	return out, nil
}

type texture struct {
	*renderer.Resource
	width, height int
	format        renderer.TextureFormat
	provider      bind_group_provider.BindGroupProvider
}

func (t *texture) Width() int                     { return t.width }
func (t *texture) Height() int                    { return t.height }
func (t *texture) Format() renderer.TextureFormat { return t.format }

func (b *backend) CreateTexture(desc renderer.TextureDescriptor) (renderer.Texture, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.createTexture(desc)
}

// createTexture uploads RGBA8 pixels with an optional CPU-generated mip chain. WebGPU has
// neither a 3-channel format nor mip generation, so both happen on the CPU.
// Must be called with b.mu held.
func (b *backend) createTexture(desc renderer.TextureDescriptor) (*texture, error) {
	staging := common.TextureStagingData{
		Pixels:   desc.Pixels,
		Width:    uint32(desc.Width),
		Height:   uint32(desc.Height),
		Channels: desc.Format.Channels(),
	}
	var levels []common.MipLevel
	if desc.GenerateMipmaps {
		levels = common.GenerateMipChain(staging)
	} else {
		rgba := staging.RGBA()
		levels = []common.MipLevel{{Pixels: rgba.Pixels, Width: rgba.Width, Height: rgba.Height}}
	}

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	for i, level := range levels {
		b.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: uint32(i),
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			level.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  level.Width * 4,
				RowsPerImage: level.Height,
			},
			&wgpu.Extent3D{
				Width:              level.Width,
				Height:             level.Height,
				DepthOrArrayLayers: 1,
			},
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	lodMax := float32(0)
	if len(levels) > 1 {
		lodMax = float32(len(levels))
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label + " Sampler",
		AddressModeU:  addressMode(desc.Sampler.WrapU),
		AddressModeV:  addressMode(desc.Sampler.WrapV),
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     filterMode(desc.Sampler.MagFilter),
		MinFilter:     filterMode(desc.Sampler.MinFilter),
		MipmapFilter:  mipmapFilterMode(desc.Sampler.MipmapFilter),
		LodMinClamp:   0,
		LodMaxClamp:   lodMax,
		MaxAnisotropy: 1,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	provider := bind_group_provider.NewBindGroupProvider(desc.Label, bind_group_provider.WithSharedBindGroupLayout(b.textureLayout))
	provider.SetTexture(textureBinding, tex, view)
	provider.SetSampler(samplerBinding, samp)

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  desc.Label + " Bind Group",
		Layout: b.textureLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: textureBinding, TextureView: view},
			{Binding: samplerBinding, Sampler: samp},
		},
	})
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetBindGroup(bg)

	return &texture{
		Resource: renderer.NewResource(renderer.ResourceKindTexture, desc.Label, provider.Release),
		width:    desc.Width,
		height:   desc.Height,
		format:   desc.Format,
		provider: provider,
	}, nil
}

type vertexArray struct {
	*renderer.Resource
	desc renderer.VertexArrayDescriptor
	// widened holds u16 copies of u8 index data.
	widened *wgpu.Buffer
	// resolved caches input matching per program id.
	resolved map[uint64]resolvedInputs
}

func (v *vertexArray) Descriptor() renderer.VertexArrayDescriptor { return v.desc }

// indexBuffer returns the buffer and format to bind for a draw with indexType.
func (v *vertexArray) indexBuffer(indexType renderer.ComponentType) (*wgpu.Buffer, wgpu.IndexFormat, bool) {
	if v.desc.Indices == nil || indexType != v.desc.IndexType {
		return nil, 0, false
	}
	format, ok := indexFormat(indexType)
	if !ok {
		return nil, 0, false
	}
	if indexType == renderer.ComponentTypeUnsignedByte {
		return v.widened, format, v.widened != nil
	}
	ib, ok := v.desc.Indices.(*buffer)
	if !ok {
		return nil, 0, false
	}
	return ib.gpu, format, true
}

func (b *backend) CreateVertexArray(desc renderer.VertexArrayDescriptor) (renderer.VertexArray, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range desc.Attributes {
		if _, ok := a.Buffer.(*buffer); !ok || a.Buffer.Released() {
			return nil, errors.Errorf("attribute %d does not reference a live WebGPU buffer", a.Location)
		}
	}

	va := &vertexArray{desc: desc, resolved: make(map[uint64]resolvedInputs)}
	if desc.Indices != nil {
		ib, ok := desc.Indices.(*buffer)
		if !ok || ib.Released() {
			return nil, errors.New("index buffer is not a live WebGPU buffer")
		}
		if desc.IndexType == renderer.ComponentTypeUnsignedByte {
			data := padTo4(widenIndices(ib.data))
			widened, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: desc.Label + " Widened Index Buffer",
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, err
			}
			b.queue.WriteBuffer(widened, 0, data)
			va.widened = widened
		}
	}

	va.Resource = renderer.NewResource(renderer.ResourceKindVertexArray, desc.Label, func() {
		if va.widened != nil {
			va.widened.Release()
			va.widened = nil
		}
	})
	return va, nil
}

type program struct {
	*renderer.Resource
	backend    *backend
	valid      bool
	reflection shader.Reflection
	uniforms   *shader.Uniforms

	module         *wgpu.ShaderModule
	pipelineLayout *wgpu.PipelineLayout
}

func (p *program) Key() string                         { return p.Label() }
func (p *program) Valid() bool                         { return p.valid && !p.Released() }
func (p *program) Use()                                { p.backend.UseProgram(p) }
func (p *program) SetVec2(name string, x, y float32)    { p.uniforms.SetVec2(name, x, y) }
func (p *program) SetVec3(name string, x, y, z float32) { p.uniforms.SetVec3(name, x, y, z) }
func (p *program) SetMat4(name string, m [16]float32)   { p.uniforms.SetMat4(name, m) }
func (p *program) SetInt(name string, v int32)          { p.uniforms.SetInt(name, v) }

func (p *program) free() {
	p.backend.dropPipelines(p.ID())
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// checkProgramLayout enforces the binding convention every WGSL program must follow: the
// uniform block at group 0 binding 0, and a texture at group 1 binding 0 with its sampler at
// binding 1.
func checkProgramLayout(r shader.Reflection) error {
	if r.VertexEntry == "" || r.FragmentEntry == "" {
		return errors.New("missing @vertex or @fragment entry point")
	}
	if u := r.Uniforms; u != nil {
		if u.Group != uniformGroup || u.Binding != 0 {
			return errors.Errorf("uniform block %s must be at @group(0) @binding(0)", u.VarName)
		}
		if u.Size > uniformBindingSize {
			return errors.Errorf("uniform block %s is %d bytes, limit is %d", u.VarName, u.Size, uniformBindingSize)
		}
	}
	for _, bnd := range r.Bindings {
		switch bnd.Kind {
		case shader.ResourceKindUniformBuffer:
			if bnd.Group != uniformGroup || bnd.Binding != 0 || r.Uniforms == nil {
				return errors.Errorf("unsupported uniform binding %s", bnd.Name)
			}
		case shader.ResourceKindTexture:
			if bnd.Group != textureGroup || bnd.Binding != textureBinding {
				return errors.Errorf("texture %s must be at @group(1) @binding(0)", bnd.Name)
			}
		case shader.ResourceKindSampler:
			if bnd.Group != textureGroup || bnd.Binding != samplerBinding {
				return errors.Errorf("sampler %s must be at @group(1) @binding(1)", bnd.Name)
			}
		default:
			return errors.Errorf("unsupported binding %s", bnd.Name)
		}
	}
	if r.HasTextures() && r.Uniforms == nil {
		return errors.New("textured programs must also declare the group 0 uniform block")
	}
	return nil
}

// readProgramSource loads the WGSL for a program. Programs normally keep both entry points in
// one file; distinct stage files are concatenated.
func readProgramSource(desc shader.ProgramDescriptor) (string, error) {
	src, err := shader.ReadSource(desc.VertexPath)
	if err != nil {
		return "", err
	}
	if desc.FragmentPath != "" && desc.FragmentPath != desc.VertexPath {
		frag, err := shader.ReadSource(desc.FragmentPath)
		if err != nil {
			return "", err
		}
		src += "\n" + frag
	}
	return src, nil
}

func (b *backend) CreateProgram(desc shader.ProgramDescriptor) shader.Program {
	p := &program{backend: b, uniforms: shader.NewUniforms()}
	p.Resource = renderer.NewResource(renderer.ResourceKindProgram, desc.Key, p.free)

	src, err := readProgramSource(desc)
	if err != nil {
		common.Logger().Error("failed to read shader program", "key", desc.Key, "error", err)
		return p
	}
	p.reflection = shader.ReflectWGSL(src)
	if err := checkProgramLayout(p.reflection); err != nil {
		common.Logger().Error("unsupported shader program layout", "key", desc.Key, "error", err)
		return p
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src,
		},
	})
	if err != nil {
		common.Logger().Error("failed to compile shader program", "key", desc.Key, "error", err)
		return p
	}
	p.module = module

	var layouts []*wgpu.BindGroupLayout
	if p.reflection.Uniforms != nil {
		layouts = append(layouts, b.uniformLayout)
	}
	if p.reflection.HasTextures() {
		layouts = append(layouts, b.textureLayout)
	}
	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Key,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		common.Logger().Error("failed to create pipeline layout", "key", desc.Key, "error", err)
		return p
	}
	p.pipelineLayout = pipelineLayout
	p.valid = true
	return p
}
