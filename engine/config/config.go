// Package config loads the YAML settings of the isometric viewer. Every field has a default,
// so an empty or partial file is valid.
package config

import (
	"bytes"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// maxGridSide bounds the grid so a typo cannot ask for millions of draws per frame.
const maxGridSide = 256

// Config is the complete viewer configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Grid     GridConfig     `yaml:"grid"`
	Camera   CameraConfig   `yaml:"camera"`
	Model    ModelConfig    `yaml:"model"`
	Assets   AssetsConfig   `yaml:"assets"`
	Loader   LoaderConfig   `yaml:"loader"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

type RendererConfig struct {
	// Backend is one of wgpu, opengl or headless.
	Backend string `yaml:"backend"`
	// PresentMode is vsync or uncapped.
	PresentMode string `yaml:"present_mode"`
	// MSAA is the sample count: 1, 4, 8 or 16.
	MSAA       int        `yaml:"msaa"`
	ClearColor [4]float32 `yaml:"clear_color"`
	// ForceSoftware asks the WebGPU backend for a fallback adapter.
	ForceSoftware bool `yaml:"force_software"`
}

type GridConfig struct {
	Cols       int        `yaml:"cols"`
	Rows       int        `yaml:"rows"`
	TileWidth  float32    `yaml:"tile_width"`
	TileHeight float32    `yaml:"tile_height"`
	Offset     [2]float32 `yaml:"offset"`
	Highlight  [3]float32 `yaml:"highlight"`
	Dark       [3]float32 `yaml:"dark"`
	Light      [3]float32 `yaml:"light"`
}

type CameraConfig struct {
	ViewSize float32    `yaml:"view_size"`
	Aspect   float32    `yaml:"aspect"`
	Eye      [3]float32 `yaml:"eye"`
	Near     float32    `yaml:"near"`
	Far      float32    `yaml:"far"`
}

type ModelConfig struct {
	// Path is the glTF or GLB file to show. Empty disables the model.
	Path     string     `yaml:"path"`
	Scale    float32    `yaml:"scale"`
	Position [3]float32 `yaml:"position"`
	// Rotation is in degrees about X, Y and Z.
	Rotation             [3]float32 `yaml:"rotation"`
	Tint                 [3]float32 `yaml:"tint"`
	SpinDegreesPerSecond float32    `yaml:"spin_degrees_per_second"`
}

type AssetsConfig struct {
	ShaderDir string `yaml:"shader_dir"`
}

type LoaderConfig struct {
	Workers     int  `yaml:"workers"`
	ProgressBar bool `yaml:"progress_bar"`
}

// Default returns the built-in configuration: an 800x600 WebGPU window over a 10x10 grid of
// 64x32 tiles with the soldier model.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		LogLevel: "info",
		Window: WindowConfig{
			Title:  "Volgagian",
			Width:  800,
			Height: 600,
		},
		Renderer: RendererConfig{
			Backend:     "wgpu",
			PresentMode: "vsync",
			MSAA:        4,
			ClearColor:  renderer.DefaultClearColor,
		},
		Grid: GridConfig{
			Cols:       10,
			Rows:       10,
			TileWidth:  64,
			TileHeight: 32,
			Offset:     [2]float32{400, 100},
			Highlight:  [3]float32{0, 1, 0},
			Dark:       [3]float32{0.4, 0.4, 0.4},
			Light:      [3]float32{0.5, 0.5, 0.5},
		},
		Camera: CameraConfig{
			ViewSize: 5,
			Aspect:   800.0 / 600.0,
			Eye:      [3]float32{20, 20, 20},
			Near:     -100,
			Far:      100,
		},
		Model: ModelConfig{
			Path:     "data/models/Soldier.glb",
			Scale:    0.01,
			Rotation: [3]float32{-90, 0, 0},
			Tint:     [3]float32{1, 0.5, 0.2},
		},
		Assets: AssetsConfig{
			ShaderDir: "data/shaders",
		},
		Loader: LoaderConfig{
			Workers: runtime.NumCPU(),
		},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns the defaults.
//
// Parameters:
//   - path: the config file, or "" for none
//
// Returns:
//   - Config: the validated configuration
//   - error: error if the file cannot be read or parsed
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the validated configuration
//   - error: error if the document is malformed
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, errors.Wrap(err, "invalid yaml")
		}
	}
	cfg.Validate()
	return cfg, nil
}

// Validate replaces nonsensical values with defaults or clamps them into range, logging a
// warning for each change.
func (c *Config) Validate() {
	def := Default()
	log := common.Logger()
	fix := func(field string, from, to any) {
		log.Warn("invalid config value replaced", "field", field, "value", from, "using", to)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		fix("window.size", [2]int{c.Window.Width, c.Window.Height}, [2]int{def.Window.Width, def.Window.Height})
		c.Window.Width, c.Window.Height = def.Window.Width, def.Window.Height
	}
	c.Window.Title = common.Coalesce(c.Window.Title, def.Window.Title)

	if _, err := renderer.ParseBackendType(c.Renderer.Backend); err != nil {
		fix("renderer.backend", c.Renderer.Backend, def.Renderer.Backend)
		c.Renderer.Backend = def.Renderer.Backend
	}
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "vsync", "uncapped":
	default:
		fix("renderer.present_mode", c.Renderer.PresentMode, def.Renderer.PresentMode)
		c.Renderer.PresentMode = def.Renderer.PresentMode
	}
	switch c.Renderer.MSAA {
	case 1, 4, 8, 16:
	default:
		fix("renderer.msaa", c.Renderer.MSAA, def.Renderer.MSAA)
		c.Renderer.MSAA = def.Renderer.MSAA
	}
	for i := range c.Renderer.ClearColor {
		c.Renderer.ClearColor[i] = common.Clamp(c.Renderer.ClearColor[i], 0, 1)
	}

	if c.Grid.Cols < 0 || c.Grid.Cols > maxGridSide || c.Grid.Rows < 0 || c.Grid.Rows > maxGridSide {
		cols, rows := common.Clamp(c.Grid.Cols, 0, maxGridSide), common.Clamp(c.Grid.Rows, 0, maxGridSide)
		fix("grid.size", [2]int{c.Grid.Cols, c.Grid.Rows}, [2]int{cols, rows})
		c.Grid.Cols, c.Grid.Rows = cols, rows
	}
	if c.Grid.TileWidth <= 0 || c.Grid.TileHeight <= 0 {
		fix("grid.tile_size", [2]float32{c.Grid.TileWidth, c.Grid.TileHeight}, [2]float32{def.Grid.TileWidth, def.Grid.TileHeight})
		c.Grid.TileWidth, c.Grid.TileHeight = def.Grid.TileWidth, def.Grid.TileHeight
	}

	if c.Camera.ViewSize <= 0 {
		fix("camera.view_size", c.Camera.ViewSize, def.Camera.ViewSize)
		c.Camera.ViewSize = def.Camera.ViewSize
	}
	if c.Camera.Aspect <= 0 {
		aspect := float32(c.Window.Width) / float32(c.Window.Height)
		fix("camera.aspect", c.Camera.Aspect, aspect)
		c.Camera.Aspect = aspect
	}
	if c.Camera.Near >= c.Camera.Far {
		fix("camera.clip", [2]float32{c.Camera.Near, c.Camera.Far}, [2]float32{def.Camera.Near, def.Camera.Far})
		c.Camera.Near, c.Camera.Far = def.Camera.Near, def.Camera.Far
	}

	if c.Model.Scale <= 0 {
		fix("model.scale", c.Model.Scale, def.Model.Scale)
		c.Model.Scale = def.Model.Scale
	}

	c.Assets.ShaderDir = common.Coalesce(c.Assets.ShaderDir, def.Assets.ShaderDir)
	if c.Loader.Workers < 1 {
		c.Loader.Workers = def.Loader.Workers
	}
}

// Level returns the configured log level.
func (c Config) Level() slog.Level {
	return common.ParseLogLevel(c.LogLevel)
}

// BackendType returns the configured renderer backend.
func (c RendererConfig) BackendType() renderer.RendererBackendType {
	t, err := renderer.ParseBackendType(c.Backend)
	if err != nil {
		return renderer.BackendTypeWGPU
	}
	return t
}

// Present returns the configured present mode.
func (c RendererConfig) Present() renderer.PresentMode {
	if strings.EqualFold(c.PresentMode, "uncapped") {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}

// SampleCount returns the configured MSAA sample count.
func (c RendererConfig) SampleCount() renderer.MSAASampleCount {
	return renderer.MSAASampleCount(c.MSAA)
}
