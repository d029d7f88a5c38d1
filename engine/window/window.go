package window

import (
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// GraphicsAPI is the client API a window is created for.
type GraphicsAPI int

const (
	// GraphicsAPINone creates no context; WebGPU draws through a surface instead.
	GraphicsAPINone GraphicsAPI = iota

	// GraphicsAPIOpenGL creates an OpenGL 3.3 core, forward-compatible context.
	GraphicsAPIOpenGL
)

func (a GraphicsAPI) String() string {
	if a == GraphicsAPIOpenGL {
		return "opengl"
	}
	return "none"
}

// Window provides platform windowing and input event handling.
// Wraps platform-specific window implementations with a common interface.
// It satisfies the surface interfaces of both renderer backends.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the window is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// CursorPosition returns the pointer position in window coordinates.
	//
	// Returns:
	//   - x, y: the cursor position in pixels from the top-left corner
	CursorPosition() (x, y float32)

	// Time returns the seconds elapsed since the window was created.
	//
	// Returns:
	//   - float64: elapsed seconds
	Time() float64

	// GraphicsAPI returns the client API the window was created for.
	//
	// Returns:
	//   - GraphicsAPI: the client API
	GraphicsAPI() GraphicsAPI

	// MakeContextCurrent binds the window's OpenGL context to the calling thread.
	// It does nothing for windows created without a client API.
	MakeContextCurrent()

	// SwapBuffers presents the back buffer of an OpenGL window.
	// It does nothing for windows created without a client API.
	SwapBuffers()

	// SetSwapInterval sets how many vertical blanks SwapBuffers waits for (0 disables vsync).
	// It does nothing for windows created without a client API.
	//
	// Parameters:
	//   - interval: the swap interval
	SetSwapInterval(interval int)

	// FramebufferSize returns the drawable size in pixels, which differs from the window
	// size on high-DPI displays.
	//
	// Returns:
	//   - width, height: the framebuffer size in pixels
	FramebufferSize() (width, height int)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// RequestClose asks the message loop to stop after the current iteration. The window stays
	// alive until Close so GPU resources can still be released against it.
	RequestClose()

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// ProcessMessages runs the window message loop.
	// Blocks until the window is closed. Calls OnUpdate callback each iteration.
	ProcessMessages()

	// Width returns the current window client area width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current window client area height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and event callbacks.
type engineWindow struct {
	mu sync.Mutex

	// title is the window title displayed in the title bar.
	title string

	// maxWidth is the maximum allowed window width during resize.
	maxWidth int

	// maxHeight is the maximum allowed window height during resize.
	maxHeight int

	// minWidth is the minimum allowed window width during resize.
	minWidth int

	// minHeight is the minimum allowed window height during resize.
	minHeight int

	// width is the current window client area width in pixels.
	width int

	// height is the current window client area height in pixels.
	height int

	// api is the client API requested at creation.
	api GraphicsAPI

	// samples is the multisample count requested for the default framebuffer (OpenGL only).
	samples int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// onUpdate is called each iteration of the message loop (if set).
	onUpdate func()

	// onResize is called when the window is resized.
	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: error if GLFW cannot be initialized or the window cannot be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:     "Volgagian",
		minWidth:  320,
		minHeight: 240,
		width:     800,
		height:    600,
		api:       GraphicsAPINone,
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, errors.Wrap(err, "failed to create platform window")
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) CursorPosition() (float32, float32) {
	return platformCursorPosition(w)
}

func (w *engineWindow) Time() float64 {
	return platformTime()
}

func (w *engineWindow) GraphicsAPI() GraphicsAPI {
	return w.api
}

func (w *engineWindow) MakeContextCurrent() {
	if w.api == GraphicsAPIOpenGL {
		platformMakeContextCurrent(w)
	}
}

func (w *engineWindow) SwapBuffers() {
	if w.api == GraphicsAPIOpenGL {
		platformSwapBuffers(w)
	}
}

func (w *engineWindow) SetSwapInterval(interval int) {
	if w.api == GraphicsAPIOpenGL {
		platformSwapInterval(interval)
	}
}

func (w *engineWindow) FramebufferSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) RequestClose() {
	platformRequestClose(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if succ := platformProcessMessages(w); !succ {
			break
		}

		if w.onUpdate != nil {
			w.onUpdate()
		}

		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// setSize records a new framebuffer size.
func (w *engineWindow) setSize(width, height int) {
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
}
