package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Window.Title != "Volgagian" || cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Grid.Offset != [2]float32{400, 100} || cfg.Grid.Cols != 10 || cfg.Grid.Rows != 10 {
		t.Errorf("grid = %+v", cfg.Grid)
	}
	if cfg.Model.Scale != 0.01 || cfg.Model.Rotation != [3]float32{-90, 0, 0} {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Renderer.BackendType() != renderer.BackendTypeWGPU || cfg.Renderer.Present() != renderer.PresentModeVSync {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	data := []byte(`
log_level: debug
renderer:
  backend: opengl
  present_mode: uncapped
grid:
  cols: 4
model:
  path: assets/box.glb
  spin_degrees_per_second: 45
loader:
  progress_bar: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Renderer.BackendType() != renderer.BackendTypeOpenGL || cfg.Renderer.Present() != renderer.PresentModeUncapped {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Grid.Cols != 4 || cfg.Grid.Rows != 10 {
		t.Errorf("grid = %dx%d, want 4x10", cfg.Grid.Cols, cfg.Grid.Rows)
	}
	if cfg.Model.Path != "assets/box.glb" || cfg.Model.SpinDegreesPerSecond != 45 || cfg.Model.Scale != 0.01 {
		t.Errorf("model = %+v", cfg.Model)
	}
	if !cfg.Loader.ProgressBar || cfg.Loader.Workers < 1 {
		t.Errorf("loader = %+v", cfg.Loader)
	}
	if cfg.Level().String() != "DEBUG" {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("windw:\n  width: 10\n")); err == nil {
		t.Fatal("expected error for an unknown key")
	}
	if _, err := Parse([]byte("grid: [1, 2")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidateClamps(t *testing.T) {
	cfg, err := Parse([]byte(`
window: {width: -1, height: 0}
renderer: {backend: vulkan, present_mode: sometimes, msaa: 3, clear_color: [2, -1, 0.5, 1]}
grid: {cols: 100000, rows: -3, tile_width: 0}
camera: {view_size: -2, aspect: 0, near: 10, far: 5}
model: {scale: 0}
loader: {workers: 0}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := Default()
	if cfg.Window.Width != 800 || cfg.Window.Height != 600 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Renderer.Backend != "wgpu" || cfg.Renderer.PresentMode != "vsync" || cfg.Renderer.MSAA != 4 {
		t.Errorf("renderer = %+v", cfg.Renderer)
	}
	if cfg.Renderer.ClearColor != [4]float32{1, 0, 0.5, 1} {
		t.Errorf("clear color = %v", cfg.Renderer.ClearColor)
	}
	if cfg.Grid.Cols != maxGridSide || cfg.Grid.Rows != 0 {
		t.Errorf("grid = %dx%d", cfg.Grid.Cols, cfg.Grid.Rows)
	}
	if cfg.Grid.TileWidth != 64 || cfg.Grid.TileHeight != 32 {
		t.Errorf("tile size = %vx%v", cfg.Grid.TileWidth, cfg.Grid.TileHeight)
	}
	if cfg.Camera.ViewSize != 5 || cfg.Camera.Aspect != def.Camera.Aspect || cfg.Camera.Near != -100 || cfg.Camera.Far != 100 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Model.Scale != 0.01 || cfg.Loader.Workers != def.Loader.Workers {
		t.Errorf("model scale %v workers %d", cfg.Model.Scale, cfg.Loader.Workers)
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", "isometric.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if cfg.Grid != def.Grid || cfg.Camera.Eye != def.Camera.Eye || cfg.Model.Path != def.Model.Path {
		t.Errorf("example config drifted from defaults: %+v", cfg)
	}
	if cfg.Loader.Workers != 4 || !cfg.Loader.ProgressBar {
		t.Errorf("loader = %+v", cfg.Loader)
	}
}
