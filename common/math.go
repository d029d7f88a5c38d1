package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// DepthRange identifies the clip-space depth convention a graphics API expects.
type DepthRange int

const (
	// DepthRangeNegativeOneToOne is the OpenGL convention, z in [-1, 1].
	DepthRangeNegativeOneToOne DepthRange = iota

	// DepthRangeZeroToOne is the WebGPU convention, z in [0, 1].
	DepthRangeZeroToOne
)

// zeroToOneCorrection remaps clip z from [-w, w] to [0, w].
var zeroToOneCorrection = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// ModelMatrix composes translation, Euler rotation in degrees, and scale into a model matrix.
// The composition is T * Ry * Rx * Rz * S: rotation about Y is applied last to the
// already X- and Z-rotated geometry. The order is fixed and not commutative.
//
// Parameters:
//   - position: translation in world units
//   - rotation: rotation about X, Y and Z in degrees
//   - scale: per-axis scale factors
//
// Returns:
//   - mgl32.Mat4: the column-major model matrix
func ModelMatrix(position, rotation, scale [3]float32) mgl32.Mat4 {
	m := mgl32.Translate3D(position[0], position[1], position[2])
	m = m.Mul4(mgl32.HomogRotate3DY(mgl32.DegToRad(rotation[1])))
	m = m.Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(rotation[0])))
	m = m.Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(rotation[2])))
	return m.Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// OrthoProjection builds a symmetric orthographic projection whose vertical half-extent is
// viewSize and whose horizontal half-extent is viewSize*aspect.
//
// Parameters:
//   - viewSize: half the visible height in world units
//   - aspect: viewport width divided by height
//   - near, far: clip plane distances (may be negative)
//   - depth: the clip-space depth convention of the target backend
//
// Returns:
//   - mgl32.Mat4: the projection matrix
func OrthoProjection(viewSize, aspect, near, far float32, depth DepthRange) mgl32.Mat4 {
	p := mgl32.Ortho(-viewSize*aspect, viewSize*aspect, -viewSize, viewSize, near, far)
	if depth == DepthRangeZeroToOne {
		p = zeroToOneCorrection.Mul4(p)
	}
	return p
}

// LookAt creates a right-handed view matrix from an eye position, a target and an up vector.
//
// Parameters:
//   - eye: camera position in world space
//   - target: point the camera looks at
//   - up: up direction, typically +Y
//
// Returns:
//   - mgl32.Mat4: the view matrix
func LookAt(eye, target, up [3]float32) mgl32.Mat4 {
	return mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(target), mgl32.Vec3(up))
}
