package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally. The engine takes ownership and closes it on Release.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets a renderer created by the caller. The backend setting of the config is
// then ignored. The engine takes ownership and releases it.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithTickCallback registers a per-frame callback during construction.
//
// Parameters:
//   - callback: function receiving the seconds since the previous frame
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickCallback(callback func(deltaTime float32)) EngineBuilderOption {
	return func(e *engine) {
		if callback != nil {
			e.tickCallbacks = append(e.tickCallbacks, callback)
		}
	}
}

// WithClock replaces the frame timer. The function must return seconds on a monotonic timeline.
//
// Parameters:
//   - clock: the timer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithClock(clock func() float64) EngineBuilderOption {
	return func(e *engine) {
		e.clock = clock
	}
}

// WithPointer replaces the cursor source, which defaults to the window cursor.
//
// Parameters:
//   - pointer: function returning the pointer in framebuffer pixels
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPointer(pointer func() (float32, float32)) EngineBuilderOption {
	return func(e *engine) {
		e.pointer = pointer
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second.
// Pass 0 to uncap the loop (default).
//
// Parameters:
//   - fps: maximum frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
