package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection defaults for the isometric camera.
const (
	// DefaultViewSize is the half height of the orthographic view volume in world units.
	DefaultViewSize float32 = 5
	// DefaultAspect is the width over height ratio of the default 800x600 window.
	DefaultAspect float32 = 800.0 / 600.0
	// DefaultNear is the near clip plane distance; negative so geometry behind the eye still draws.
	DefaultNear float32 = -100
	// DefaultFar is the far clip plane distance.
	DefaultFar float32 = 100
)

// View defaults for the isometric camera.
var (
	// DefaultEye is the eye position, on the diagonal of the positive octant.
	DefaultEye = [3]float32{20, 20, 20}
	// DefaultTarget is the point the camera looks at.
	DefaultTarget = [3]float32{0, 0, 0}
	// DefaultUp is the world up direction.
	DefaultUp = [3]float32{0, 1, 0}
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    [3]float32
	target [3]float32
	up     [3]float32

	viewSize float32
	aspect   float32
	near     float32
	far      float32
	depth    common.DepthRange

	viewMatrix       mgl32.Mat4
	projectionMatrix mgl32.Mat4
}

// Camera defines the interface for the isometric camera.
// The camera is orthographic and looks at a fixed target from a fixed eye, so the world keeps
// its isometric look regardless of distance. Matrices are recomputed whenever a setting changes.
type Camera interface {
	// View returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the current orthographic projection matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// ViewProjection returns Projection * View.
	//
	// Returns:
	//   - mgl32.Mat4: the combined matrix
	ViewProjection() mgl32.Mat4

	// Eye returns the camera position.
	//
	// Returns:
	//   - [3]float32: the eye position
	Eye() [3]float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// ViewSize returns half the visible height in world units.
	//
	// Returns:
	//   - float32: the vertical half-extent
	ViewSize() float32

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	// Non-positive values are ignored.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetViewSize sets half the visible height in world units and recomputes matrices.
	// Non-positive values are ignored.
	//
	// Parameters:
	//   - size: the vertical half-extent
	SetViewSize(size float32)

	// SetEye moves the camera and recomputes matrices.
	//
	// Parameters:
	//   - eye: the new eye position
	SetEye(eye [3]float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new isometric Camera looking at the origin from (20, 20, 20) with a
// view size of 5 and an 800x600 aspect ratio.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		eye:      DefaultEye,
		target:   DefaultTarget,
		up:       DefaultUp,
		viewSize: DefaultViewSize,
		aspect:   DefaultAspect,
		near:     DefaultNear,
		far:      DefaultFar,
		depth:    common.DepthRangeNegativeOneToOne,
	}
	for _, opt := range options {
		opt(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix.Mul4(c.viewMatrix)
}

func (c *cameraImpl) Eye() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewSize() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewSize
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetViewSize(size float32) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewSize = size
	c.updateMatrices()
}

func (c *cameraImpl) SetEye(eye [3]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = eye
	c.updateMatrices()
}

// updateMatrices recalculates the view and projection matrices.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = common.LookAt(c.eye, c.target, c.up)
	c.projectionMatrix = common.OrthoProjection(c.viewSize, c.aspect, c.near, c.far, c.depth)
}
