package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/engine/camera"
	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
	"github.com/Carmen-Shannon/oxy-iso/engine/model"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/tile"
	"github.com/pkg/errors"
)

// Grid dimensions used when WithGrid is not given.
const (
	// DefaultCols is the number of tile columns along the grid X axis.
	DefaultCols = 10
	// DefaultRows is the number of tile rows along the grid Y axis.
	DefaultRows = 10
)

// Scene draws one frame of the isometric world: a grid of tiles with the hovered tile
// highlighted, then an optional model on top.
// Thread-safe for concurrent access, although drawing must happen on the render thread.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the scene's renderer.
	Renderer() renderer.Renderer

	// Tiles returns the tile renderer.
	Tiles() tile.TileRenderer

	// Model returns the model drawn over the grid, or nil.
	Model() model.Model

	// SetModel replaces the model drawn over the grid. The previous model is released.
	//
	// Parameters:
	//   - m: the new model, may be nil
	SetModel(m model.Model)

	// Grid returns the number of tile columns and rows.
	Grid() (cols, rows int)

	// SetViewport updates the drawable size passed to the tile program after a resize.
	//
	// Parameters:
	//   - width, height: the drawable size in pixels
	SetViewport(width, height int)

	// Viewport returns the drawable size in pixels.
	Viewport() [2]float32

	// DrawFrame renders one frame. The pointer is in window pixels; the tile under it is
	// highlighted. The frame is ended but not presented.
	//
	// Parameters:
	//   - pointer: the cursor position in window pixels
	//
	// Returns:
	//   - error: error if the backend could not begin or end the frame
	DrawFrame(pointer isometric.ScreenPosition) error

	// Hovered returns the grid cell under the pointer as of the last DrawFrame.
	//
	// Returns:
	//   - isometric.GridCoordinate: the hovered cell
	Hovered() isometric.GridCoordinate

	// Release frees the tile renderer and the model.
	Release()
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu sync.Mutex

	name   string
	active bool

	camera   camera.Camera
	r        renderer.Renderer
	tiles    tile.TileRenderer
	model    model.Model
	cols     int
	rows     int
	viewport [2]float32

	hovered isometric.GridCoordinate
}

var _ Scene = &scene{}

// NewScene creates a new Scene drawing a 10x10 grid unless WithGrid says otherwise.
//
// Parameters:
//   - name: the scene identifier
//   - cam: the camera whose matrices the model is drawn with
//   - r: the renderer
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	w, h := r.Size()
	s := &scene{
		name:     name,
		active:   true,
		camera:   cam,
		r:        r,
		cols:     DefaultCols,
		rows:     DefaultRows,
		viewport: [2]float32{float32(w), float32(h)},
	}
	for _, opt := range options {
		opt(s)
	}
	if s.tiles == nil {
		s.tiles = tile.NewTileRenderer(r)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.camera
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Tiles() tile.TileRenderer {
	return s.tiles
}

func (s *scene) Model() model.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *scene) SetModel(m model.Model) {
	s.mu.Lock()
	old := s.model
	s.model = m
	s.mu.Unlock()
	if old != nil && old != m {
		old.Release()
	}
}

func (s *scene) Grid() (int, int) {
	return s.cols, s.rows
}

func (s *scene) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = [2]float32{float32(width), float32(height)}
}

func (s *scene) Viewport() [2]float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// HoveredCell returns the grid cell under pointer for a tile renderer's projection and offset.
//
// Parameters:
//   - t: the tile renderer that places the tiles
//   - pointer: the cursor position in window pixels
//
// Returns:
//   - isometric.GridCoordinate: the cell under the pointer
func HoveredCell(t tile.TileRenderer, pointer isometric.ScreenPosition) isometric.GridCoordinate {
	return t.Projection().ScreenToTile(pointer.Sub(t.Offset()))
}

func (s *scene) DrawFrame(pointer isometric.ScreenPosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hovered = HoveredCell(s.tiles, pointer)

	if err := s.r.BeginFrame(); err != nil {
		return errors.Wrap(err, "failed to begin frame")
	}

	s.r.SetDepthTest(false)
	for y := 0; y < s.rows; y++ {
		for x := 0; x < s.cols; x++ {
			g := isometric.GridCoordinate{X: x, Y: y}
			s.tiles.DrawTile(g, s.viewport, g == s.hovered)
		}
	}

	if s.model != nil {
		s.model.Draw(s.camera.View(), s.camera.Projection())
	}

	if err := s.r.EndFrame(); err != nil {
		return errors.Wrap(err, "failed to end frame")
	}
	return nil
}

func (s *scene) Hovered() isometric.GridCoordinate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiles.Release()
	if s.model != nil {
		s.model.Release()
		s.model = nil
	}
}
