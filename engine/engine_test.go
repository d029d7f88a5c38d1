package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/config"
	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
)

func headlessConfig() config.Config {
	cfg := config.Default()
	cfg.Renderer.Backend = "headless"
	cfg.Model.Path = ""
	return cfg
}

func newHeadlessEngine(t *testing.T, cfg config.Config, options ...EngineBuilderOption) (Engine, *renderer.HeadlessBackend) {
	t.Helper()
	e, err := NewEngine(cfg, options...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Release)
	if e.Window() != nil {
		t.Fatal("headless engine should not open a window")
	}
	return e, e.Renderer().Backend().(*renderer.HeadlessBackend)
}

func TestStepDrawsGridAndPresents(t *testing.T) {
	e, hb := newHeadlessEngine(t, headlessConfig(), WithPointer(func() (float32, float32) { return 432, 116 }))

	if err := e.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}

	draws := hb.Draws()
	if len(draws) != 100 {
		t.Fatalf("draws = %d, want 100", len(draws))
	}
	if got := e.Scene().Hovered(); got != (isometric.GridCoordinate{X: 1, Y: 0}) {
		t.Fatalf("hovered = %v, want (1,0)", got)
	}

	cmds := hb.Commands()
	if last := cmds[len(cmds)-1]; last.Op != renderer.OpPresent {
		t.Fatalf("last command = %v, want present", last.Op)
	}
	if hb.Frames() != 1 {
		t.Fatalf("frames = %d, want 1", hb.Frames())
	}
}

func TestGridFollowsConfig(t *testing.T) {
	cfg := headlessConfig()
	cfg.Grid.Cols, cfg.Grid.Rows = 3, 2
	cfg.Grid.TileWidth, cfg.Grid.TileHeight = 128, 64
	e, hb := newHeadlessEngine(t, cfg)

	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	draws := hb.Draws()
	if len(draws) != 6 {
		t.Fatalf("draws = %d, want 6", len(draws))
	}
	if got := draws[0].Vec("uSize"); got[0] != 128 || got[1] != 64 {
		t.Fatalf("uSize = %v, want [128 64]", got)
	}
}

func TestTickCallbacksReceiveDelta(t *testing.T) {
	now := 10.0
	var deltas []float32
	e, _ := newHeadlessEngine(t, headlessConfig(),
		WithClock(func() float64 { return now }),
		WithTickCallback(func(dt float32) { deltas = append(deltas, dt) }),
	)
	var second int
	e.AddTickCallback(func(float32) { second++ })

	now = 10.25
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	now = 10.75
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}

	if len(deltas) != 2 || deltas[0] != 0.25 || deltas[1] != 0.5 {
		t.Fatalf("deltas = %v, want [0.25 0.5]", deltas)
	}
	if second != 2 {
		t.Fatalf("second callback ran %d times, want 2", second)
	}
}

func TestModelSpin(t *testing.T) {
	cfg := headlessConfig()
	// a missing file still yields an (empty) model that can be transformed
	cfg.Model.Path = "testdata/missing.glb"
	cfg.Model.SpinDegreesPerSecond = 90
	now := 0.0
	e, hb := newHeadlessEngine(t, cfg, WithClock(func() float64 { return now }))

	m := e.Scene().Model()
	if m == nil {
		t.Fatal("expected a model")
	}
	now = 0.5
	if err := e.Step(); err != nil {
		t.Fatal(err)
	}
	if got := m.Rotation(); got != [3]float32{-90, 45, 0} {
		t.Fatalf("rotation = %v, want [-90 45 0]", got)
	}
	if len(hb.Draws()) != 100 {
		t.Fatalf("draws = %d, want only the 100 tiles", len(hb.Draws()))
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	var frames int
	var e Engine
	e, hb := newHeadlessEngine(t, headlessConfig(), WithTickCallback(func(float32) {
		frames++
		if frames == 3 {
			e.Quit()
		}
	}))

	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if hb.Frames() != 3 {
		t.Fatalf("frames = %d, want 3", hb.Frames())
	}
}

func TestReleaseFreesEverything(t *testing.T) {
	var logs bytes.Buffer
	prev := common.Logger()
	common.SetLogger(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { common.SetLogger(prev) })

	cfg := headlessConfig()
	cfg.Model.Path = "testdata/missing.glb"
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if e.Renderer().LiveResources() == 0 {
		t.Fatal("expected live tile and model resources before release")
	}
	e.Release()
	e.Release()
	if strings.Contains(logs.String(), "leaked") {
		t.Fatalf("release left resources to the renderer:\n%s", logs.String())
	}
}

func TestSetRenderFrameLimit(t *testing.T) {
	e, _ := newHeadlessEngine(t, headlessConfig(), WithRenderFrameLimit(50))
	impl := e.(*engine)
	if impl.renderFrameLimit.Milliseconds() != 20 {
		t.Fatalf("frame limit = %v, want 20ms", impl.renderFrameLimit)
	}
	e.SetRenderFrameLimit(0)
	if impl.renderFrameLimit != 0 {
		t.Fatalf("frame limit = %v, want uncapped", impl.renderFrameLimit)
	}
}
