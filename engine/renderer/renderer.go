package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/pkg/errors"
)

// DefaultClearColor is the dark gray the frame is cleared to unless configured otherwise.
var DefaultClearColor = [4]float32{0.1, 0.1, 0.1, 1.0}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	resources   *registry

	config   BackendConfig
	released bool
}

// Renderer defines the interface for the rendering system.
//
// This is a high-level API designed to simplify rendering tasks into a streamlined and idiomatic flow.
// The Renderer tracks every GPU resource it creates and forwards draw state to a backend, which allows
// for multiple backend API implementations to exist.
//
// Binding state set through UseProgram, BindVertexArray and BindTexture persists across draws until
// replaced; callers that need a specific state must set it before drawing.
type Renderer interface {
	// BackendType returns the backend the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Backend exposes the backend for capability checks and tests.
	//
	// Returns:
	//   - RendererBackend: the active backend
	Backend() RendererBackend

	// Info describes the device the backend is running on.
	//
	// Returns:
	//   - BackendInfo: names and version strings reported by the driver
	Info() BackendInfo

	// ShadingLanguage returns the language programs must be written in for this backend.
	//
	// Returns:
	//   - shader.Language: GLSL, WGSL or none
	ShadingLanguage() shader.Language

	// DepthRange returns the clip-space depth convention of the backend, used to build
	// projection matrices.
	//
	// Returns:
	//   - common.DepthRange: the depth convention
	DepthRange() common.DepthRange

	// Size returns the current drawable size in pixels.
	//
	// Returns:
	//   - int: width
	//   - int: height
	Size() (int, int)

	// CreateBuffer uploads an immutable buffer. The returned buffer is tracked until released.
	//
	// Parameters:
	//   - desc: the buffer contents and usage
	//
	// Returns:
	//   - Buffer: the GPU buffer
	//   - error: an error if the descriptor is invalid or the upload fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateTexture uploads a 2D texture. The returned texture is tracked until released.
	//
	// Parameters:
	//   - desc: the pixels, format and sampler state
	//
	// Returns:
	//   - Texture: the GPU texture
	//   - error: an error if the descriptor is invalid or the upload fails
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateVertexArray records an attribute layout over existing buffers. Releasing the
	// vertex array does not release the buffers it references.
	//
	// Parameters:
	//   - desc: the attribute layout and optional index buffer
	//
	// Returns:
	//   - VertexArray: the vertex array
	//   - error: an error if the descriptor is invalid
	CreateVertexArray(desc VertexArrayDescriptor) (VertexArray, error)

	// CreateProgram builds a shader program. Failures are logged and an invalid program is
	// returned; it is never nil.
	//
	// Parameters:
	//   - desc: the program key and stage source paths
	//
	// Returns:
	//   - shader.Program: the program
	CreateProgram(desc shader.ProgramDescriptor) shader.Program

	// UseProgram binds p for subsequent draws. Equivalent to p.Use().
	//
	// Parameters:
	//   - p: the program, or nil to unbind
	UseProgram(p shader.Program)

	// BindVertexArray binds va for subsequent draws.
	//
	// Parameters:
	//   - va: the vertex array, or nil to unbind
	BindVertexArray(va VertexArray)

	// BindTexture binds tex to a texture unit. Nil unbinds the unit.
	//
	// Parameters:
	//   - unit: the texture unit, 0 through MaxTextureUnits-1
	//   - tex: the texture, or nil
	BindTexture(unit int, tex Texture)

	// SetDepthTest toggles depth testing for subsequent draws.
	SetDepthTest(enabled bool)

	// SetFaceCulling toggles back-face culling for subsequent draws.
	SetFaceCulling(enabled bool)

	// Bindings returns a copy of the current binding state.
	//
	// Returns:
	//   - Bindings: the bound program, vertex array, textures and raster toggles
	Bindings() Bindings

	// DrawArrays draws count non-indexed vertices starting at first as a triangle list.
	// Skipped when no valid program or no vertex array is bound.
	DrawArrays(first, count int)

	// DrawElements draws count indices of the bound vertex array's index buffer as a
	// triangle list. Skipped when no valid program or no vertex array is bound.
	DrawElements(count int, indexType ComponentType)

	// SetClearColor changes the color BeginFrame clears to.
	SetClearColor(c [4]float32)

	// BeginFrame acquires the next frame and clears color and depth.
	// Must be paired with EndFrame after all draw calls within a single frame.
	//
	// Returns:
	//   - error: an error if the frame could not be acquired
	BeginFrame() error

	// EndFrame finishes the frame's command recording and submits it.
	// Does not present the surface; call Present() after EndFrame to display the frame.
	//
	// Returns:
	//   - error: an error if submission fails
	EndFrame() error

	// Present presents the surface to the display.
	// Must be called once per frame after EndFrame.
	//
	// Returns:
	//   - error: an error if presentation fails
	Present() error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// LiveResources returns the number of tracked resources not yet released.
	//
	// Returns:
	//   - int: the live resource count
	LiveResources() int

	// Release releases every resource still tracked, logging each as leaked, then tears down
	// the backend. Safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type and surface.
// The backend must have been registered, which the backend packages do from init; import them
// for side effects. The headless backend is always registered.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - surface: the surface to render into; may be nil for the headless backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the backend is not registered or fails to initialize
func NewRenderer(backendType RendererBackendType, surface Surface, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		resources:   newRegistry(),
		config: BackendConfig{
			Width:       800,
			Height:      600,
			PresentMode: PresentModeVSync,
			MSAA:        MSAA4x,
			ClearColor:  DefaultClearColor,
		},
	}

	// Apply options first so config flags (e.g. ForceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	if surface != nil {
		if w, h := surface.FramebufferSize(); w > 0 && h > 0 {
			r.config.Width, r.config.Height = w, h
		}
	}

	factory, ok := lookupBackend(backendType)
	if !ok {
		return nil, errors.Errorf("renderer backend %s is not registered", backendType)
	}
	backend, err := factory(surface, r.config)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s backend", backendType)
	}
	r.backend = backend

	info := backend.Info()
	common.Logger().Info("renderer initialized",
		"backend", backendType.String(),
		"vendor", info.Vendor,
		"device", info.Device,
		"version", info.Version,
		"width", r.config.Width,
		"height", r.config.Height,
	)
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) Info() BackendInfo {
	return r.backend.Info()
}

func (r *renderer) ShadingLanguage() shader.Language {
	return r.backend.ShadingLanguage()
}

func (r *renderer) DepthRange() common.DepthRange {
	return r.backend.DepthRange()
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config.Width, r.config.Height
}

func (r *renderer) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	b, err := r.backend.CreateBuffer(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create buffer %q", desc.Label)
	}
	r.resources.track(b)
	return b, nil
}

func (r *renderer) CreateTexture(desc TextureDescriptor) (Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	t, err := r.backend.CreateTexture(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create texture %q", desc.Label)
	}
	r.resources.track(t)
	return t, nil
}

func (r *renderer) CreateVertexArray(desc VertexArrayDescriptor) (VertexArray, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	va, err := r.backend.CreateVertexArray(desc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create vertex array %q", desc.Label)
	}
	r.resources.track(va)
	return va, nil
}

func (r *renderer) CreateProgram(desc shader.ProgramDescriptor) shader.Program {
	p := r.backend.CreateProgram(desc)
	if h, ok := p.(Handle); ok {
		r.resources.track(h)
	}
	if !p.Valid() {
		common.Logger().Error("shader program is invalid, draws using it will be skipped", "key", desc.Key)
	}
	return p
}

func (r *renderer) UseProgram(p shader.Program) {
	r.backend.UseProgram(p)
}

func (r *renderer) BindVertexArray(va VertexArray) {
	r.backend.BindVertexArray(va)
}

func (r *renderer) BindTexture(unit int, tex Texture) {
	if unit < 0 || unit >= MaxTextureUnits {
		common.Logger().Warn("texture unit out of range", "unit", unit)
		return
	}
	r.backend.BindTexture(unit, tex)
}

func (r *renderer) SetDepthTest(enabled bool) {
	r.backend.SetDepthTest(enabled)
}

func (r *renderer) SetFaceCulling(enabled bool) {
	r.backend.SetFaceCulling(enabled)
}

func (r *renderer) Bindings() Bindings {
	return r.backend.Bindings()
}

func (r *renderer) DrawArrays(first, count int) {
	if count <= 0 || first < 0 {
		return
	}
	r.backend.DrawArrays(first, count)
}

func (r *renderer) DrawElements(count int, indexType ComponentType) {
	if count <= 0 {
		return
	}
	r.backend.DrawElements(count, indexType)
}

func (r *renderer) SetClearColor(c [4]float32) {
	r.mu.Lock()
	r.config.ClearColor = c
	r.mu.Unlock()
	r.backend.SetClearColor(c)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) EndFrame() error {
	return r.backend.EndFrame()
}

func (r *renderer) Present() error {
	return r.backend.Present()
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.config.Width, r.config.Height = width, height
	r.mu.Unlock()
	r.backend.Resize(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	r.config.PresentMode = mode
	r.mu.Unlock()
	r.backend.SetPresentMode(mode)
}

func (r *renderer) LiveResources() int {
	return r.resources.count()
}

func (r *renderer) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()

	if n := r.resources.releaseAll(); n > 0 {
		common.Logger().Warn("renderer released leaked resources", "count", n)
	}
	r.backend.Release()
}
