package scene

import (
	"github.com/Carmen-Shannon/oxy-iso/engine/model"
	"github.com/Carmen-Shannon/oxy-iso/engine/tile"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithGrid sets the number of tile columns and rows drawn each frame.
//
// Parameters:
//   - cols: tiles along X
//   - rows: tiles along Y
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithGrid(cols, rows int) SceneBuilderOption {
	return func(s *scene) {
		s.cols, s.rows = max(cols, 0), max(rows, 0)
	}
}

// WithTileRenderer sets the tile renderer. Without it the scene creates one with default
// settings. The scene takes ownership and releases it.
//
// Parameters:
//   - t: the tile renderer
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTileRenderer(t tile.TileRenderer) SceneBuilderOption {
	return func(s *scene) {
		s.tiles = t
	}
}

// WithModel sets the model drawn on top of the grid. The scene takes ownership and releases it.
//
// Parameters:
//   - m: the model
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithModel(m model.Model) SceneBuilderOption {
	return func(s *scene) {
		s.model = m
	}
}

// WithViewport sets the drawable size passed to the tile program. It defaults to the
// renderer size.
//
// Parameters:
//   - width, height: the drawable size in pixels
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithViewport(width, height int) SceneBuilderOption {
	return func(s *scene) {
		s.viewport = [2]float32{float32(width), float32(height)}
	}
}
