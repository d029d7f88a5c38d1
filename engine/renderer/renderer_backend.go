package renderer

import (
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/pkg/errors"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeOpenGL selects the OpenGL 3.3 core backend.
	BackendTypeOpenGL

	// BackendTypeHeadless selects the in-memory backend that records commands instead of
	// drawing. It needs no window and no GPU.
	BackendTypeHeadless
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeOpenGL:
		return "opengl"
	case BackendTypeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// ParseBackendType maps a config string to a backend type.
//
// Parameters:
//   - s: one of "wgpu", "webgpu", "opengl", "gl", "headless" (case-insensitive)
//
// Returns:
//   - RendererBackendType: the matching type
//   - error: an error if s names no backend
func ParseBackendType(s string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wgpu", "webgpu":
		return BackendTypeWGPU, nil
	case "opengl", "gl":
		return BackendTypeOpenGL, nil
	case "headless", "none":
		return BackendTypeHeadless, nil
	default:
		return 0, errors.Errorf("unknown renderer backend %q", s)
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Surface is what a backend renders into. Windows implement it; backends type-assert
// the extra capabilities they need (a WebGPU surface descriptor, a GL context).
type Surface interface {
	// FramebufferSize returns the drawable size in pixels.
	FramebufferSize() (int, int)
}

// RendererBackend is implemented once per graphics API. All methods are called from the
// render thread.
type RendererBackend interface {
	Info() BackendInfo
	ShadingLanguage() shader.Language
	DepthRange() common.DepthRange

	CreateBuffer(desc BufferDescriptor) (Buffer, error)
	CreateTexture(desc TextureDescriptor) (Texture, error)
	CreateVertexArray(desc VertexArrayDescriptor) (VertexArray, error)
	// CreateProgram never returns nil; failures yield a program whose Valid reports false.
	CreateProgram(desc shader.ProgramDescriptor) shader.Program

	UseProgram(p shader.Program)
	BindVertexArray(va VertexArray)
	BindTexture(unit int, tex Texture)
	SetDepthTest(enabled bool)
	SetFaceCulling(enabled bool)
	Bindings() Bindings

	// DrawArrays and DrawElements are skipped unless Bindings().Drawable().
	DrawArrays(first, count int)
	DrawElements(count int, indexType ComponentType)

	SetClearColor(c [4]float32)
	BeginFrame() error
	EndFrame() error
	Present() error
	Resize(width, height int)
	SetPresentMode(mode PresentMode)
	Release()
}

// BackendFactory creates a backend for a surface.
type BackendFactory func(surface Surface, cfg BackendConfig) (RendererBackend, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[RendererBackendType]BackendFactory)
)

// RegisterBackend makes a backend available to NewRenderer. Backend packages call it from
// init; a later registration for the same type replaces the earlier one.
//
// Parameters:
//   - t: the backend type the factory serves
//   - factory: the constructor
func RegisterBackend(t RendererBackendType, factory BackendFactory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[t] = factory
}

func lookupBackend(t RendererBackendType) (BackendFactory, bool) {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	f, ok := backends[t]
	return f, ok
}
