// Package tile draws the flat diamonds of the isometric ground grid.
package tile

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/isometric"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
)

const (
	// DefaultShaderDir is where the tile program is read from unless WithShaderDir is given.
	DefaultShaderDir = "data/shaders"

	programKey  = "tile"
	programName = "tile"

	vertexCount = 6
)

// DefaultOffset is the pixel position of grid cell (0,0).
var DefaultOffset = isometric.ScreenPosition{X: 400, Y: 100}

// diamond is a unit diamond two units wide and one unit tall, centered on the origin,
// as two triangles of (x, y) pairs.
var diamond = []float32{
	0, 0.5,
	1, 0,
	0, -0.5,

	0, -0.5,
	-1, 0,
	0, 0.5,
}

// Colors is the tile palette.
type Colors struct {
	// Highlight is used for the hovered tile.
	Highlight [3]float32
	// Dark is used where x+y is even.
	Dark [3]float32
	// Light is used where x+y is odd.
	Light [3]float32
}

// DefaultColors returns a green highlight over a gray checkerboard.
func DefaultColors() Colors {
	return Colors{
		Highlight: [3]float32{0, 1, 0},
		Dark:      [3]float32{0.4, 0.4, 0.4},
		Light:     [3]float32{0.5, 0.5, 0.5},
	}
}

// Color returns the color of grid cell g.
func (c Colors) Color(g isometric.GridCoordinate, hovered bool) [3]float32 {
	if hovered {
		return c.Highlight
	}
	if common.FloorMod(g.X+g.Y, 2) == 0 {
		return c.Dark
	}
	return c.Light
}

// TileColor returns the default palette color of grid cell g.
//
// Parameters:
//   - g: the grid cell
//   - hovered: whether the pointer is over the cell
//
// Returns:
//   - [3]float32: the RGB color
func TileColor(g isometric.GridCoordinate, hovered bool) [3]float32 {
	return DefaultColors().Color(g, hovered)
}

// tileRenderer is the implementation of the TileRenderer interface.
type tileRenderer struct {
	mu         sync.Mutex
	renderer   renderer.Renderer
	program    shader.Program
	vertices   renderer.Buffer
	mesh       renderer.VertexArray
	projection isometric.Projection
	offset     isometric.ScreenPosition
	colors     Colors
	shaderDir  string
	released   bool
}

// TileRenderer draws one isometric tile per call with a shared diamond mesh.
type TileRenderer interface {
	// DrawTile draws the diamond of grid cell g. The tile program and the diamond mesh stay
	// bound afterwards. Nothing visible is drawn when the program failed to build.
	//
	// Parameters:
	//   - g: the grid cell
	//   - viewport: the drawable size in pixels
	//   - hovered: whether to use the highlight color
	DrawTile(g isometric.GridCoordinate, viewport [2]float32, hovered bool)

	// TileColor returns the color DrawTile uses for g.
	//
	// Parameters:
	//   - g: the grid cell
	//   - hovered: whether the pointer is over the cell
	//
	// Returns:
	//   - [3]float32: the RGB color
	TileColor(g isometric.GridCoordinate, hovered bool) [3]float32

	// ScreenPosition returns the pixel center of grid cell g, offset included.
	//
	// Parameters:
	//   - g: the grid cell
	//
	// Returns:
	//   - isometric.ScreenPosition: the pixel position
	ScreenPosition(g isometric.GridCoordinate) isometric.ScreenPosition

	// Projection returns the tile dimensions.
	Projection() isometric.Projection

	// Offset returns the pixel position of grid cell (0,0).
	Offset() isometric.ScreenPosition

	// Release frees the mesh and the program. Later calls do nothing.
	Release()
}

var _ TileRenderer = &tileRenderer{}

// NewTileRenderer creates the diamond mesh and the tile program on r.
// A mesh that cannot be created is logged; DrawTile then draws nothing.
//
// Parameters:
//   - r: the renderer to draw with
//   - options: functional options to configure the tile renderer
//
// Returns:
//   - TileRenderer: the tile renderer
func NewTileRenderer(r renderer.Renderer, options ...TileRendererBuilderOption) TileRenderer {
	t := &tileRenderer{
		renderer:   r,
		projection: isometric.Default(),
		offset:     DefaultOffset,
		colors:     DefaultColors(),
		shaderDir:  DefaultShaderDir,
	}
	for _, opt := range options {
		opt(t)
	}
	if t.projection.TileWidth <= 0 || t.projection.TileHeight <= 0 {
		t.projection = isometric.Default()
	}

	t.program = r.CreateProgram(shader.DescriptorFor(programKey, t.shaderDir, programName, r.ShadingLanguage()))
	if err := t.createMesh(); err != nil {
		common.Logger().Error("failed to create tile mesh", "error", err)
	}
	return t
}

func (t *tileRenderer) createMesh() error {
	vb, err := t.renderer.CreateBuffer(renderer.BufferDescriptor{
		Label: "tile:diamond",
		Usage: renderer.BufferUsageVertex,
		Data:  common.SliceToBytes(diamond),
	})
	if err != nil {
		return err
	}
	va, err := t.renderer.CreateVertexArray(renderer.VertexArrayDescriptor{
		Label: "tile:diamond",
		Attributes: []renderer.VertexAttribute{
			{Location: 0, Buffer: vb, Components: 2, ComponentType: renderer.ComponentTypeFloat, Stride: 8},
		},
	})
	if err != nil {
		vb.Release()
		return err
	}
	t.vertices, t.mesh = vb, va
	return nil
}

func (t *tileRenderer) DrawTile(g isometric.GridCoordinate, viewport [2]float32, hovered bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released || t.mesh == nil {
		return
	}

	pos := t.projection.TileToScreen(g).Add(t.offset)
	color := t.colors.Color(g, hovered)

	t.program.Use()
	t.program.SetVec2("uResolution", viewport[0], viewport[1])
	t.program.SetVec2("uSize", t.projection.TileWidth, t.projection.TileHeight)
	t.program.SetVec2("uOffset", pos.X, pos.Y)
	t.program.SetVec3("uColor", color[0], color[1], color[2])

	t.renderer.BindVertexArray(t.mesh)
	t.renderer.DrawArrays(0, vertexCount)
}

func (t *tileRenderer) TileColor(g isometric.GridCoordinate, hovered bool) [3]float32 {
	return t.colors.Color(g, hovered)
}

func (t *tileRenderer) ScreenPosition(g isometric.GridCoordinate) isometric.ScreenPosition {
	return t.projection.TileToScreen(g).Add(t.offset)
}

func (t *tileRenderer) Projection() isometric.Projection {
	return t.projection
}

func (t *tileRenderer) Offset() isometric.ScreenPosition {
	return t.offset
}

func (t *tileRenderer) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true
	if t.mesh != nil {
		t.mesh.Release()
		t.vertices.Release()
	}
	t.program.Release()
}
