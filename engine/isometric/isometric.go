// Package isometric converts between integer tile coordinates and pixel positions on a
// diamond (2:1) isometric grid.
package isometric

import "math"

const (
	// DefaultTileWidth is the on-screen width of one tile diamond in pixels.
	DefaultTileWidth float32 = 64
	// DefaultTileHeight is the on-screen height of one tile diamond in pixels.
	DefaultTileHeight float32 = 32
)

// GridCoordinate is a tile index on the isometric grid.
type GridCoordinate struct {
	X, Y int
}

// ScreenPosition is a pixel position relative to the grid origin.
type ScreenPosition struct {
	X, Y float32
}

// Sub returns p - o.
func (p ScreenPosition) Sub(o ScreenPosition) ScreenPosition {
	return ScreenPosition{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p ScreenPosition) Add(o ScreenPosition) ScreenPosition {
	return ScreenPosition{X: p.X + o.X, Y: p.Y + o.Y}
}

// Projection holds the tile dimensions that define the grid-to-screen mapping.
type Projection struct {
	TileWidth  float32
	TileHeight float32
}

// Default returns the 64x32 projection.
func Default() Projection {
	return Projection{TileWidth: DefaultTileWidth, TileHeight: DefaultTileHeight}
}

// halfSize returns half the tile dimensions, substituting the defaults for non-positive sizes.
func (p Projection) halfSize() (float32, float32) {
	w, h := p.TileWidth, p.TileHeight
	if w <= 0 {
		w = DefaultTileWidth
	}
	if h <= 0 {
		h = DefaultTileHeight
	}
	return w / 2, h / 2
}

// TileToScreen returns the pixel position of grid cell g. Tile meshes are centered here and
// ScreenToTile maps this exact point back to g.
//
// Parameters:
//   - g: the grid coordinate to project
//
// Returns:
//   - ScreenPosition: x = (gx-gy)*W/2, y = (gx+gy)*H/2
func (p Projection) TileToScreen(g GridCoordinate) ScreenPosition {
	halfW, halfH := p.halfSize()
	return ScreenPosition{
		X: float32(g.X-g.Y) * halfW,
		Y: float32(g.X+g.Y) * halfH,
	}
}

// ScreenToTile inverts TileToScreen and floors the result, so every pixel maps to exactly
// one cell. Points lying exactly on a shared diamond edge resolve to the lower index.
//
// Parameters:
//   - s: the pixel position relative to the grid origin
//
// Returns:
//   - GridCoordinate: the cell containing s
func (p Projection) ScreenToTile(s ScreenPosition) GridCoordinate {
	halfW, halfH := p.halfSize()
	isoX := (s.X/halfW + s.Y/halfH) * 0.5
	isoY := (s.Y/halfH - s.X/halfW) * 0.5
	return GridCoordinate{
		X: int(math.Floor(float64(isoX))),
		Y: int(math.Floor(float64(isoY))),
	}
}

// TileToScreen projects g with the default 64x32 tile size.
func TileToScreen(g GridCoordinate) ScreenPosition {
	return Default().TileToScreen(g)
}

// ScreenToTile inverts TileToScreen with the default 64x32 tile size.
func ScreenToTile(s ScreenPosition) GridCoordinate {
	return Default().ScreenToTile(s)
}
