package camera

import (
	"github.com/Carmen-Shannon/oxy-iso/common"
)

type CameraBuilderOption func(*cameraImpl)

// WithEye sets the camera position.
//
// Parameters:
//   - eye: the eye position in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's eye
func WithEye(eye [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye = eye
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - target: the look-at point in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(target [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = target
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up direction
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up [3]float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithViewSize sets half the visible height in world units.
//
// Parameters:
//   - size: the vertical half-extent
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's view size
func WithViewSize(size float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if size > 0 {
			c.viewSize = size
		}
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clip distances. Orthographic cameras accept
// negative values, which keep geometry behind the eye visible.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near, c.far = near, far
	}
}

// WithDepthRange sets the clip-space depth convention of the backend the matrices are for.
//
// Parameters:
//   - depth: the depth convention
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's depth range
func WithDepthRange(depth common.DepthRange) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.depth = depth
	}
}
