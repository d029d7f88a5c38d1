package tile

import (
	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
)

// TileRendererBuilderOption is a functional option for configuring a TileRenderer via NewTileRenderer.
type TileRendererBuilderOption func(*tileRenderer)

// WithProjection is an option builder that sets the tile dimensions used to place tiles.
//
// Parameters:
//   - p: the isometric projection
//
// Returns:
//   - TileRendererBuilderOption: a function that applies the projection option to a tile renderer
func WithProjection(p isometric.Projection) TileRendererBuilderOption {
	return func(t *tileRenderer) {
		t.projection = p
	}
}

// WithOffset is an option builder that sets the pixel position of grid cell (0,0).
//
// Parameters:
//   - offset: the world offset in pixels
//
// Returns:
//   - TileRendererBuilderOption: a function that applies the offset option to a tile renderer
func WithOffset(offset isometric.ScreenPosition) TileRendererBuilderOption {
	return func(t *tileRenderer) {
		t.offset = offset
	}
}

// WithColors is an option builder that replaces the checkerboard and highlight colors.
//
// Parameters:
//   - colors: the tile palette
//
// Returns:
//   - TileRendererBuilderOption: a function that applies the colors option to a tile renderer
func WithColors(colors Colors) TileRendererBuilderOption {
	return func(t *tileRenderer) {
		t.colors = colors
	}
}

// WithShaderDir is an option builder that sets the directory the tile program is read from.
//
// Parameters:
//   - dir: the shader asset directory
//
// Returns:
//   - TileRendererBuilderOption: a function that applies the shader directory option to a tile renderer
func WithShaderDir(dir string) TileRendererBuilderOption {
	return func(t *tileRenderer) {
		t.shaderDir = dir
	}
}
