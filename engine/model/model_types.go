package model

import (
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
)

// DrawUnit is one indexed primitive ready to draw. The loader creates it from a single glTF
// primitive and hands ownership to the Model that draws it.
type DrawUnit struct {
	// VertexArray carries the vertex buffers, the index buffer and the attribute layout.
	VertexArray renderer.VertexArray

	// Texture is the base-color texture, or nil when the primitive has none.
	Texture renderer.Texture

	// IndexCount is the number of indices drawn.
	IndexCount int

	// IndexType is the element type of the index buffer (u8, u16 or u32).
	IndexType renderer.ComponentType
}

// Release frees the texture, the vertex array and every buffer it references.
// Handles release at most once, so calling this twice is harmless.
func (u DrawUnit) Release() {
	if u.Texture != nil {
		u.Texture.Release()
	}
	if u.VertexArray == nil {
		return
	}
	desc := u.VertexArray.Descriptor()
	u.VertexArray.Release()
	for _, a := range desc.Attributes {
		if a.Buffer != nil {
			a.Buffer.Release()
		}
	}
	if desc.Indices != nil {
		desc.Indices.Release()
	}
}

// Transform is the mutable placement of a model in world space.
type Transform struct {
	// Position is the translation in world units.
	Position [3]float32

	// Rotation is the Euler rotation about X, Y and Z in degrees.
	Rotation [3]float32

	// Scale is the per-axis scale factor.
	Scale [3]float32
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: [3]float32{1, 1, 1}}
}
