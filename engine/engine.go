// Package engine assembles the isometric viewer from its configuration and runs the frame loop.
package engine

import (
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/camera"
	"github.com/Carmen-Shannon/oxy-iso/engine/config"
	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
	"github.com/Carmen-Shannon/oxy-iso/engine/loader"
	"github.com/Carmen-Shannon/oxy-iso/engine/model"
	"github.com/Carmen-Shannon/oxy-iso/engine/profiler"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/scene"
	"github.com/Carmen-Shannon/oxy-iso/engine/tile"
	"github.com/Carmen-Shannon/oxy-iso/engine/window"
	"github.com/pkg/errors"

	// Backends register themselves from init.
	_ "github.com/Carmen-Shannon/oxy-iso/engine/renderer/gl_backend"
	_ "github.com/Carmen-Shannon/oxy-iso/engine/renderer/wgpu_backend"
)

// sceneName names the single scene the engine builds.
const sceneName = "isometric"

// engine implements the Engine interface.
// Everything runs on the thread that created the window, which owns the graphics context.
type engine struct {
	cfg config.Config

	window   window.Window
	renderer renderer.Renderer
	camera   camera.Camera
	loader   loader.Loader
	scene    scene.Scene

	profiler         *profiler.Profiler
	profilingEnabled bool

	tickMu        sync.Mutex
	tickCallbacks []func(deltaTime float32)

	// clock returns seconds on a monotonic timeline; the window timer when there is one.
	clock    func() float64
	lastTime float64

	// pointer returns the cursor in framebuffer pixels.
	pointer func() (float32, float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	quit        atomic.Bool
	releaseOnce sync.Once
}

// Engine is the main entry point for the viewer.
// It owns the window, the renderer and the scene, and drives one frame per loop iteration.
type Engine interface {
	// Config returns the validated configuration the engine was built from.
	Config() config.Config

	// Window returns the underlying window, or nil for a headless engine.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer all resources were created on.
	Renderer() renderer.Renderer

	// Camera returns the camera used for the model.
	Camera() camera.Camera

	// Scene returns the scene drawn each frame.
	Scene() scene.Scene

	// Loader returns the loader used for the startup model. It can load further models onto
	// the same renderer.
	Loader() loader.Loader

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// AddTickCallback registers a function called once per frame before drawing.
	// Callbacks run in registration order.
	//
	// Parameters:
	//   - callback: function receiving the seconds since the previous frame
	AddTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional frame rate cap in frames per second.
	// Pass 0 to uncap the loop (default).
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Step runs one frame: read the pointer, run tick callbacks, spin the model, draw the scene
	// and present it.
	//
	// Returns:
	//   - error: error if the frame could not be drawn or presented
	Step() error

	// Run loops Step until the window closes or Quit is called. A windowed engine logs frame
	// errors and keeps going; a headless engine stops at the first one.
	//
	// Returns:
	//   - error: the frame error that stopped a headless engine
	Run() error

	// Quit stops Run after the current frame. Safe to call from tick callbacks and other
	// goroutines, and safe to call more than once.
	Quit()

	// Release frees the scene and the renderer, then closes the window. Later calls do nothing.
	Release()
}

var _ Engine = &engine{}

// NewEngine builds the viewer from cfg: window, renderer, camera, tile renderer, loader, model
// and scene, in that order. The model file is loaded synchronously; a model that fails to load
// is logged and the grid is shown without it.
//
// Parameters:
//   - cfg: the configuration, validated again here
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if the window or the renderer cannot be created
func NewEngine(cfg config.Config, options ...EngineBuilderOption) (Engine, error) {
	cfg.Validate()
	e := &engine{
		cfg:      cfg,
		profiler: profiler.NewProfiler(),
	}
	for _, opt := range options {
		opt(e)
	}

	if err := e.createRenderer(); err != nil {
		if e.window != nil {
			_ = e.window.Close()
		}
		return nil, err
	}

	width, height := e.renderer.Size()
	e.camera = camera.NewCamera(
		camera.WithViewSize(cfg.Camera.ViewSize),
		camera.WithAspect(cfg.Camera.Aspect),
		camera.WithEye(cfg.Camera.Eye),
		camera.WithClipPlanes(cfg.Camera.Near, cfg.Camera.Far),
		camera.WithDepthRange(e.renderer.DepthRange()),
	)

	tiles := tile.NewTileRenderer(e.renderer,
		tile.WithProjection(isometric.Projection{TileWidth: cfg.Grid.TileWidth, TileHeight: cfg.Grid.TileHeight}),
		tile.WithOffset(isometric.ScreenPosition{X: cfg.Grid.Offset[0], Y: cfg.Grid.Offset[1]}),
		tile.WithColors(tile.Colors{Highlight: cfg.Grid.Highlight, Dark: cfg.Grid.Dark, Light: cfg.Grid.Light}),
		tile.WithShaderDir(cfg.Assets.ShaderDir),
	)

	e.loader = loader.NewLoader(e.renderer,
		loader.WithWorkers(cfg.Loader.Workers),
		loader.WithProgressBar(cfg.Loader.ProgressBar),
	)

	sceneOptions := []scene.SceneBuilderOption{
		scene.WithGrid(cfg.Grid.Cols, cfg.Grid.Rows),
		scene.WithTileRenderer(tiles),
		scene.WithViewport(width, height),
	}
	if cfg.Model.Path != "" {
		sceneOptions = append(sceneOptions, scene.WithModel(e.loadModel(cfg.Model)))
	}
	e.scene = scene.NewScene(sceneName, e.camera, e.renderer, sceneOptions...)

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			e.renderer.Resize(width, height)
			e.scene.SetViewport(width, height)
		})
	}

	if e.clock == nil {
		if e.window != nil {
			e.clock = e.window.Time
		} else {
			start := time.Now()
			e.clock = func() float64 { return time.Since(start).Seconds() }
		}
	}
	if e.pointer == nil {
		if e.window != nil {
			e.pointer = e.window.CursorPosition
		} else {
			e.pointer = func() (float32, float32) { return 0, 0 }
		}
	}
	e.lastTime = e.clock()

	return e, nil
}

// createRenderer opens the window the configured backend needs, unless one was supplied or the
// backend is headless, and creates the renderer on it.
func (e *engine) createRenderer() error {
	if e.renderer != nil {
		return nil
	}
	rc := e.cfg.Renderer
	backendType := rc.BackendType()

	if e.window == nil && backendType != renderer.BackendTypeHeadless {
		api := window.GraphicsAPINone
		if backendType == renderer.BackendTypeOpenGL {
			api = window.GraphicsAPIOpenGL
		}
		w, err := window.NewWindow(
			window.WithTitle(e.cfg.Window.Title),
			window.WithWidth(e.cfg.Window.Width),
			window.WithHeight(e.cfg.Window.Height),
			window.WithGraphicsAPI(api),
			window.WithSamples(int(rc.SampleCount())),
		)
		if err != nil {
			return errors.Wrap(err, "failed to create window")
		}
		e.window = w
	}

	var surface renderer.Surface
	if e.window != nil {
		surface = e.window
	}
	r, err := renderer.NewRenderer(backendType, surface,
		renderer.WithSize(e.cfg.Window.Width, e.cfg.Window.Height),
		renderer.WithPresentMode(rc.Present()),
		renderer.WithMSAA(rc.SampleCount()),
		renderer.WithClearColor(rc.ClearColor),
		renderer.WithForceSoftwareRenderer(rc.ForceSoftware),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create renderer")
	}
	e.renderer = r
	return nil
}

// loadModel loads mc.Path and wraps the draw units in a model placed by mc.
func (e *engine) loadModel(mc config.ModelConfig) model.Model {
	units := e.loader.Load(mc.Path)
	return model.NewModel(e.renderer, units,
		model.WithName(filepath.Base(mc.Path)),
		model.WithPosition(mc.Position),
		model.WithRotation(mc.Rotation),
		model.WithUniformScale(mc.Scale),
		model.WithTint(mc.Tint),
		model.WithShaderDir(e.cfg.Assets.ShaderDir),
	)
}

func (e *engine) Config() config.Config {
	return e.cfg
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) Loader() loader.Loader {
	return e.loader
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

func (e *engine) AddTickCallback(callback func(deltaTime float32)) {
	if callback == nil {
		return
	}
	e.tickMu.Lock()
	e.tickCallbacks = append(e.tickCallbacks, callback)
	e.tickMu.Unlock()
}

// SetRenderFrameLimit sets an optional frame rate cap.
// Pass 0 to uncap the loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) Step() error {
	now := e.clock()
	dt := float32(now - e.lastTime)
	if dt < 0 {
		dt = 0
	}
	e.lastTime = now

	x, y := e.pointer()

	e.tickMu.Lock()
	callbacks := append([]func(float32){}, e.tickCallbacks...)
	e.tickMu.Unlock()
	for _, cb := range callbacks {
		cb(dt)
	}

	if spin := e.cfg.Model.SpinDegreesPerSecond; spin != 0 {
		if m := e.scene.Model(); m != nil {
			m.Rotate([3]float32{0, spin * dt, 0})
		}
	}

	if err := e.scene.DrawFrame(isometric.ScreenPosition{X: x, Y: y}); err != nil {
		return errors.Wrap(err, "failed to draw frame")
	}
	// The OpenGL backend swaps buffers inside Present.
	if err := e.renderer.Present(); err != nil {
		return errors.Wrap(err, "failed to present frame")
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
	return nil
}

func (e *engine) Run() error {
	if e.window == nil {
		for !e.quit.Load() {
			start := time.Now()
			if err := e.Step(); err != nil {
				return err
			}
			e.limitFrame(start)
		}
		return nil
	}

	// The graphics context belongs to the thread that created the window.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.window.SetUpdateCallback(func() {
		if e.quit.Load() {
			e.window.RequestClose()
			return
		}
		start := time.Now()
		if err := e.Step(); err != nil {
			common.Logger().Warn("frame failed", "error", err)
		}
		e.limitFrame(start)
	})
	e.window.ProcessMessages()
	return nil
}

// limitFrame sleeps out the rest of the frame budget when a frame limit is set.
func (e *engine) limitFrame(start time.Time) {
	if e.renderFrameLimit <= 0 {
		return
	}
	if remaining := e.renderFrameLimit - time.Since(start); remaining > 0 {
		time.Sleep(remaining)
	}
}

// Quit stops Run after the current frame.
// Safe to call multiple times; subsequent calls are no-ops.
func (e *engine) Quit() {
	e.quit.Store(true)
}

func (e *engine) Release() {
	e.releaseOnce.Do(func() {
		e.quit.Store(true)
		if e.scene != nil {
			e.scene.Release()
		}
		if e.renderer != nil {
			e.renderer.Release()
		}
		if e.window != nil {
			if err := e.window.Close(); err != nil {
				common.Logger().Warn("failed to close window", "error", err)
			}
		}
	})
}
