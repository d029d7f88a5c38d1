package gl_backend

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

func init() {
	renderer.RegisterBackend(renderer.BackendTypeOpenGL, New)
}

// ContextProvider is the capability a window needs to host the OpenGL backend: an OpenGL 3.3
// core context it can make current and swap.
type ContextProvider interface {
	renderer.Surface
	MakeContextCurrent()
	SwapBuffers()
	SetSwapInterval(interval int)
}

type backend struct {
	mu      sync.Mutex
	context ContextProvider

	width, height int
	clearColor    [4]float32
	bindings      renderer.Bindings
	inFrame       bool
	info          renderer.BackendInfo
}

var _ renderer.RendererBackend = &backend{}

// New creates an OpenGL backend on the surface's context. The context is made current on the
// calling thread, which must stay the render thread.
//
// Parameters:
//   - surface: the window, which must implement ContextProvider
//   - cfg: the backend configuration
//
// Returns:
//   - renderer.RendererBackend: the backend
//   - error: an error if the surface has no GL context or GL cannot be loaded
func New(surface renderer.Surface, cfg renderer.BackendConfig) (renderer.RendererBackend, error) {
	ctx, ok := surface.(ContextProvider)
	if !ok {
		return nil, errors.New("surface does not provide an OpenGL context")
	}
	ctx.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		return nil, errors.Wrap(err, "failed to load OpenGL functions")
	}

	b := &backend{
		context:    ctx,
		width:      cfg.Width,
		height:     cfg.Height,
		clearColor: cfg.ClearColor,
	}
	if w, h := surface.FramebufferSize(); w > 0 && h > 0 {
		b.width, b.height = w, h
	}
	b.info = renderer.BackendInfo{
		Name:     renderer.BackendTypeOpenGL.String(),
		Vendor:   gl.GoStr(gl.GetString(gl.VENDOR)),
		Device:   gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:  gl.GoStr(gl.GetString(gl.VERSION)),
		Language: shader.LanguageGLSL,
	}
	common.Logger().Debug("OpenGL shading language", "version", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)))

	if cfg.MSAA > renderer.MSAAOff {
		gl.Enable(gl.MULTISAMPLE)
	}
	gl.DepthFunc(gl.LESS)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	b.SetPresentMode(cfg.PresentMode)
	return b, nil
}

func (b *backend) Info() renderer.BackendInfo { return b.info }

func (b *backend) ShadingLanguage() shader.Language { return shader.LanguageGLSL }

func (b *backend) DepthRange() common.DepthRange { return common.DepthRangeNegativeOneToOne }

func (b *backend) UseProgram(p shader.Program) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings.Program = p
	if gp, ok := p.(*program); ok && gp.Valid() {
		gl.UseProgram(gp.id)
	} else {
		gl.UseProgram(0)
	}
}

func (b *backend) BindVertexArray(va renderer.VertexArray) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings.VertexArray = va
	b.applyVertexArray()
}

// applyVertexArray must be called with b.mu held.
func (b *backend) applyVertexArray() {
	if gva, ok := b.bindings.VertexArray.(*vertexArray); ok && !gva.Released() {
		gl.BindVertexArray(gva.id)
	} else {
		gl.BindVertexArray(0)
	}
}

// restoreVertexArray rebinds the tracked vertex array after resource creation touched GL state.
func (b *backend) restoreVertexArray() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyVertexArray()
}

func (b *backend) BindTexture(unit int, tex renderer.Texture) {
	if unit < 0 || unit >= renderer.MaxTextureUnits {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings.Textures[unit] = tex
	b.applyTexture(unit)
}

// applyTexture must be called with b.mu held.
func (b *backend) applyTexture(unit int) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	if gt, ok := b.bindings.Textures[unit].(*texture); ok && !gt.Released() {
		gl.BindTexture(gl.TEXTURE_2D, gt.id)
	} else {
		gl.BindTexture(gl.TEXTURE_2D, 0)
	}
}

// restoreTextureUnit0 rebinds unit 0 after texture creation.
func (b *backend) restoreTextureUnit0() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyTexture(0)
}

func (b *backend) SetDepthTest(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings.DepthTest = enabled
	if enabled {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
}

func (b *backend) SetFaceCulling(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bindings.FaceCulling = enabled
	if enabled {
		gl.Enable(gl.CULL_FACE)
	} else {
		gl.Disable(gl.CULL_FACE)
	}
}

func (b *backend) Bindings() renderer.Bindings {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bindings
}

// prepareDraw uploads the bound program's uniforms. Must be called with b.mu held.
func (b *backend) prepareDraw() bool {
	if !b.bindings.Drawable() {
		return false
	}
	p, ok := b.bindings.Program.(*program)
	if !ok {
		return false
	}
	if _, ok := b.bindings.VertexArray.(*vertexArray); !ok {
		return false
	}
	p.upload()
	return true
}

func (b *backend) DrawArrays(first, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.prepareDraw() {
		return
	}
	gl.DrawArrays(gl.TRIANGLES, int32(first), int32(count))
}

func (b *backend) DrawElements(count int, indexType renderer.ComponentType) {
	b.mu.Lock()
	defer b.mu.Unlock()
	va, ok := b.bindings.VertexArray.(*vertexArray)
	if !ok || va.desc.Indices == nil {
		return
	}
	glType, ok := glIndexType(indexType)
	if !ok {
		return
	}
	if !b.prepareDraw() {
		return
	}
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), glType, 0)
}

func (b *backend) SetClearColor(c [4]float32) {
	b.mu.Lock()
	b.clearColor = c
	b.mu.Unlock()
}

func (b *backend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inFrame {
		return errors.New("BeginFrame called twice without EndFrame")
	}
	b.inFrame = true

	gl.Viewport(0, 0, int32(b.width), int32(b.height))
	gl.ClearColor(b.clearColor[0], b.clearColor[1], b.clearColor[2], b.clearColor[3])
	// Depth writes must be on for the depth clear to take effect.
	gl.DepthMask(true)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

func (b *backend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.inFrame {
		return errors.New("EndFrame called without BeginFrame")
	}
	b.inFrame = false
	if code := gl.GetError(); code != gl.NO_ERROR {
		return errors.Errorf("OpenGL error 0x%04X during frame", code)
	}
	return nil
}

func (b *backend) Present() error {
	b.context.SwapBuffers()
	return nil
}

func (b *backend) Resize(width, height int) {
	b.mu.Lock()
	b.width, b.height = width, height
	b.mu.Unlock()
}

func (b *backend) SetPresentMode(mode renderer.PresentMode) {
	if mode == renderer.PresentModeVSync {
		b.context.SetSwapInterval(1)
	} else {
		b.context.SetSwapInterval(0)
	}
}

func (b *backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gl.UseProgram(0)
	gl.BindVertexArray(0)
	b.bindings = renderer.Bindings{}
}
