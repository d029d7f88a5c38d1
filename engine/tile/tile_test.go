package tile

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
)

func newHeadless(t *testing.T) (renderer.Renderer, *renderer.HeadlessBackend) {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeHeadless, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	t.Cleanup(r.Release)
	return r, r.Backend().(*renderer.HeadlessBackend)
}

func TestTileColor(t *testing.T) {
	dark := [3]float32{0.4, 0.4, 0.4}
	light := [3]float32{0.5, 0.5, 0.5}
	tests := []struct {
		g       isometric.GridCoordinate
		hovered bool
		want    [3]float32
	}{
		{isometric.GridCoordinate{X: 0, Y: 0}, false, dark},
		{isometric.GridCoordinate{X: 1, Y: 0}, false, light},
		{isometric.GridCoordinate{X: 1, Y: 0}, true, [3]float32{0, 1, 0}},
		{isometric.GridCoordinate{X: 3, Y: 5}, false, dark},
		{isometric.GridCoordinate{X: -1, Y: 0}, false, light},
		{isometric.GridCoordinate{X: -3, Y: -4}, false, light},
		{isometric.GridCoordinate{X: -2, Y: 0}, false, dark},
	}
	for _, tt := range tests {
		if got := TileColor(tt.g, tt.hovered); got != tt.want {
			t.Errorf("TileColor(%v, %v) = %v, want %v", tt.g, tt.hovered, got, tt.want)
		}
	}
}

func TestCheckerboardAlternates(t *testing.T) {
	for y := -10; y < 10; y++ {
		for x := -10; x < 10; x++ {
			g := isometric.GridCoordinate{X: x, Y: y}
			right := isometric.GridCoordinate{X: x + 1, Y: y}
			down := isometric.GridCoordinate{X: x, Y: y + 1}
			if TileColor(g, false) == TileColor(right, false) || TileColor(g, false) == TileColor(down, false) {
				t.Fatalf("neighbors of %v share a color", g)
			}
		}
	}
}

func TestDrawTileUniforms(t *testing.T) {
	r, hb := newHeadless(t)
	tr := NewTileRenderer(r)
	defer tr.Release()

	tr.DrawTile(isometric.GridCoordinate{X: 2, Y: 1}, [2]float32{800, 600}, false)

	draws := hb.Draws()
	if len(draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(draws))
	}
	d := draws[0]
	if d.Op != renderer.OpDrawArrays || d.First != 0 || d.Count != 6 || d.Program != "tile" {
		t.Fatalf("draw = %+v", d)
	}
	checks := map[string][]float32{
		"uResolution": {800, 600},
		"uSize":       {64, 32},
		// (2-1)*32 + 400, (2+1)*16 + 100
		"uOffset": {432, 148},
		"uColor":  {0.5, 0.5, 0.5},
	}
	for name, want := range checks {
		got := d.Vec(name)
		if len(got) != len(want) {
			t.Errorf("%s = %v, want %v", name, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s = %v, want %v", name, got, want)
				break
			}
		}
	}

	// bindings are left in place for the caller
	b := r.Bindings()
	if b.Program == nil || b.Program.Key() != "tile" || b.VertexArray == nil {
		t.Fatalf("bindings after DrawTile = %+v", b)
	}
}

func TestDrawTileWithOptions(t *testing.T) {
	r, hb := newHeadless(t)
	colors := Colors{Highlight: [3]float32{1, 0, 0}, Dark: [3]float32{0, 0, 0}, Light: [3]float32{1, 1, 1}}
	tr := NewTileRenderer(r,
		WithProjection(isometric.Projection{TileWidth: 128, TileHeight: 64}),
		WithOffset(isometric.ScreenPosition{X: 10, Y: 20}),
		WithColors(colors),
	)
	defer tr.Release()

	tr.DrawTile(isometric.GridCoordinate{X: 1, Y: 0}, [2]float32{800, 600}, true)
	d := hb.Draws()[0]
	if got := d.Vec("uOffset"); got[0] != 74 || got[1] != 52 {
		t.Errorf("uOffset = %v, want [74 52]", got)
	}
	if got := d.Vec("uSize"); got[0] != 128 || got[1] != 64 {
		t.Errorf("uSize = %v, want [128 64]", got)
	}
	if got := d.Vec("uColor"); got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Errorf("uColor = %v, want highlight", got)
	}
}

func TestInvalidProgramDrawsNothing(t *testing.T) {
	r, hb := newHeadless(t)
	hb.FailProgram("tile")
	tr := NewTileRenderer(r)
	defer tr.Release()

	tr.DrawTile(isometric.GridCoordinate{}, [2]float32{800, 600}, false)
	if len(hb.Draws()) != 0 || hb.Skipped() != 1 {
		t.Fatalf("draws=%d skipped=%d, want 0/1", len(hb.Draws()), hb.Skipped())
	}
}

func TestReleaseOnce(t *testing.T) {
	r, hb := newHeadless(t)
	tr := NewTileRenderer(r)
	if got := r.LiveResources(); got != 3 {
		t.Fatalf("live resources = %d, want 3 (program, buffer, vertex array)", got)
	}
	tr.Release()
	tr.Release()
	if got := r.LiveResources(); got != 0 {
		t.Fatalf("live resources after release = %d", got)
	}

	tr.DrawTile(isometric.GridCoordinate{}, [2]float32{800, 600}, false)
	if len(hb.Commands()) != 0 {
		t.Fatal("released tile renderer should not draw")
	}
}
