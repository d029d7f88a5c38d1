package isometric

import "testing"

func TestRoundTrip(t *testing.T) {
	for x := -1000; x <= 1000; x++ {
		for y := -1000; y <= 1000; y += 7 {
			g := GridCoordinate{X: x, Y: y}
			if got := ScreenToTile(TileToScreen(g)); got != g {
				t.Fatalf("ScreenToTile(TileToScreen(%v)) = %v", g, got)
			}
		}
	}
}

func TestRoundTripCustomProjection(t *testing.T) {
	p := Projection{TileWidth: 128, TileHeight: 64}
	for x := -50; x <= 50; x++ {
		for y := -50; y <= 50; y++ {
			g := GridCoordinate{X: x, Y: y}
			if got := p.ScreenToTile(p.TileToScreen(g)); got != g {
				t.Fatalf("round trip of %v = %v", g, got)
			}
		}
	}
}

func TestTileToScreenIsLinear(t *testing.T) {
	pairs := [][2]GridCoordinate{
		{{0, 0}, {1, 0}},
		{{3, -2}, {-7, 5}},
		{{100, 100}, {-100, -100}},
		{{12, 0}, {0, 12}},
	}
	for _, pair := range pairs {
		a, b := pair[0], pair[1]
		sa, sb := TileToScreen(a), TileToScreen(b)
		dx, dy := a.X-b.X, a.Y-b.Y
		want := ScreenPosition{X: float32(dx-dy) * 32, Y: float32(dx+dy) * 16}
		if got := sa.Sub(sb); got != want {
			t.Errorf("TileToScreen(%v)-TileToScreen(%v) = %v, want %v", a, b, got, want)
		}
	}
}

func TestTileToScreenValues(t *testing.T) {
	tests := []struct {
		g    GridCoordinate
		want ScreenPosition
	}{
		{GridCoordinate{0, 0}, ScreenPosition{0, 0}},
		{GridCoordinate{1, 0}, ScreenPosition{32, 16}},
		{GridCoordinate{0, 1}, ScreenPosition{-32, 16}},
		{GridCoordinate{9, 9}, ScreenPosition{0, 288}},
		{GridCoordinate{-2, 3}, ScreenPosition{-160, 16}},
	}
	for _, tt := range tests {
		if got := TileToScreen(tt.g); got != tt.want {
			t.Errorf("TileToScreen(%v) = %v, want %v", tt.g, got, tt.want)
		}
	}
}

func TestScreenToTileBoundaries(t *testing.T) {
	tests := []struct {
		name string
		s    ScreenPosition
		want GridCoordinate
	}{
		{"pointer scenario", ScreenPosition{X: 432 - 400, Y: 116 - 100}, GridCoordinate{1, 0}},
		{"origin", ScreenPosition{0, 0}, GridCoordinate{0, 0}},
		{"just above origin", ScreenPosition{0, -0.01}, GridCoordinate{-1, -1}},
		{"edge between (0,0) and (1,0) resolves by floor", ScreenPosition{16, 24}, GridCoordinate{1, 0}},
		{"edge between (0,-1) and (0,0) resolves by floor", ScreenPosition{16, 8}, GridCoordinate{0, 0}},
		{"interior of (0,0)", ScreenPosition{0, 16}, GridCoordinate{0, 0}},
		{"interior of (1,0)", ScreenPosition{32, 24}, GridCoordinate{1, 0}},
		{"negative quadrant", ScreenPosition{-100, -40}, GridCoordinate{-3, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScreenToTile(tt.s); got != tt.want {
				t.Fatalf("ScreenToTile(%v) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}
}

func TestZeroProjectionFallsBackToDefault(t *testing.T) {
	var p Projection
	g := GridCoordinate{X: 4, Y: -3}
	if got, want := p.TileToScreen(g), TileToScreen(g); got != want {
		t.Fatalf("zero projection TileToScreen = %v, want %v", got, want)
	}
}
