package renderer

import (
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/pkg/errors"
)

// ComponentType is the scalar type of a vertex attribute or index element.
type ComponentType int

const (
	ComponentTypeByte ComponentType = iota
	ComponentTypeUnsignedByte
	ComponentTypeShort
	ComponentTypeUnsignedShort
	ComponentTypeUnsignedInt
	ComponentTypeFloat
)

// Size returns the byte width of one component, or 0 for an unknown type.
func (c ComponentType) Size() int {
	switch c {
	case ComponentTypeByte, ComponentTypeUnsignedByte:
		return 1
	case ComponentTypeShort, ComponentTypeUnsignedShort:
		return 2
	case ComponentTypeUnsignedInt, ComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// IsIndexType reports whether c is a legal index element type (u8, u16 or u32).
func (c ComponentType) IsIndexType() bool {
	return c == ComponentTypeUnsignedByte || c == ComponentTypeUnsignedShort || c == ComponentTypeUnsignedInt
}

func (c ComponentType) String() string {
	switch c {
	case ComponentTypeByte:
		return "i8"
	case ComponentTypeUnsignedByte:
		return "u8"
	case ComponentTypeShort:
		return "i16"
	case ComponentTypeUnsignedShort:
		return "u16"
	case ComponentTypeUnsignedInt:
		return "u32"
	case ComponentTypeFloat:
		return "f32"
	default:
		return "unknown"
	}
}

// BufferUsage states what a buffer will be bound as.
type BufferUsage int

const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
)

// BufferDescriptor describes an immutable GPU buffer initialized from Data.
type BufferDescriptor struct {
	Label string
	Usage BufferUsage
	Data  []byte
}

// Validate checks that the descriptor can be uploaded.
func (d BufferDescriptor) Validate() error {
	if len(d.Data) == 0 {
		return errors.Errorf("buffer %q has no data", d.Label)
	}
	return nil
}

// TextureFormat is the pixel layout of texture data supplied by the caller.
type TextureFormat int

const (
	TextureFormatRGB8 TextureFormat = iota
	TextureFormatRGBA8
)

// Channels returns the bytes per pixel of the format.
func (f TextureFormat) Channels() int {
	if f == TextureFormatRGB8 {
		return 3
	}
	return 4
}

// WrapMode is the texture coordinate wrapping behavior.
type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// FilterMode is a texel or mip filter.
type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

// SamplerDescriptor describes how a texture is sampled.
type SamplerDescriptor struct {
	WrapU, WrapV WrapMode
	MinFilter    FilterMode
	MagFilter    FilterMode
	// MipmapFilter only applies when the texture has mip levels.
	MipmapFilter FilterMode
}

// DefaultSampler repeats in both directions and filters linearly across mip levels.
func DefaultSampler() SamplerDescriptor {
	return SamplerDescriptor{
		WrapU:        WrapRepeat,
		WrapV:        WrapRepeat,
		MinFilter:    FilterLinear,
		MagFilter:    FilterLinear,
		MipmapFilter: FilterLinear,
	}
}

// TextureDescriptor describes a 2D texture initialized from tightly packed 8-bit pixels.
type TextureDescriptor struct {
	Label           string
	Width, Height   int
	Format          TextureFormat
	Pixels          []byte
	Sampler         SamplerDescriptor
	GenerateMipmaps bool
}

// Validate checks the pixel buffer against the declared size and format.
func (d TextureDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return errors.Errorf("texture %q has invalid size %dx%d", d.Label, d.Width, d.Height)
	}
	if want := d.Width * d.Height * d.Format.Channels(); len(d.Pixels) < want {
		return errors.Errorf("texture %q has %d bytes of pixel data, want %d", d.Label, len(d.Pixels), want)
	}
	return nil
}

// VertexAttribute binds one shader input location to a region of a vertex buffer.
type VertexAttribute struct {
	Location      int
	Buffer        Buffer
	Components    int
	ComponentType ComponentType
	Normalized    bool
	// Stride is the distance in bytes between consecutive elements; never zero.
	Stride int
	// Offset is the byte offset of the first element inside Buffer.
	Offset int
}

// VertexArrayDescriptor groups the attribute layout of a mesh with its optional index buffer.
type VertexArrayDescriptor struct {
	Label      string
	Attributes []VertexAttribute
	// Indices is nil for non-indexed meshes drawn with DrawArrays.
	Indices   Buffer
	IndexType ComponentType
}

// Attribute returns the attribute at location.
func (d VertexArrayDescriptor) Attribute(location int) (VertexAttribute, bool) {
	for _, a := range d.Attributes {
		if a.Location == location {
			return a, true
		}
	}
	return VertexAttribute{}, false
}

// Validate checks every attribute and the index element type.
func (d VertexArrayDescriptor) Validate() error {
	if len(d.Attributes) == 0 {
		return errors.Errorf("vertex array %q has no attributes", d.Label)
	}
	seen := make(map[int]bool, len(d.Attributes))
	for _, a := range d.Attributes {
		switch {
		case a.Buffer == nil:
			return errors.Errorf("vertex array %q: attribute %d has no buffer", d.Label, a.Location)
		case a.Components < 1 || a.Components > 4:
			return errors.Errorf("vertex array %q: attribute %d has %d components", d.Label, a.Location, a.Components)
		case a.ComponentType.Size() == 0:
			return errors.Errorf("vertex array %q: attribute %d has unknown component type", d.Label, a.Location)
		case a.Stride <= 0 || a.Offset < 0:
			return errors.Errorf("vertex array %q: attribute %d has stride %d offset %d", d.Label, a.Location, a.Stride, a.Offset)
		case seen[a.Location]:
			return errors.Errorf("vertex array %q: location %d bound twice", d.Label, a.Location)
		}
		seen[a.Location] = true
	}
	if d.Indices != nil && !d.IndexType.IsIndexType() {
		return errors.Errorf("vertex array %q: %s is not an index type", d.Label, d.IndexType)
	}
	return nil
}

// MaxTextureUnits is the number of texture units tracked in Bindings.
const MaxTextureUnits = 4

// Bindings is the state a backend carries between calls. Programs, vertex arrays and
// textures stay bound after a draw until something else replaces them.
type Bindings struct {
	Program     shader.Program
	VertexArray VertexArray
	Textures    [MaxTextureUnits]Texture
	DepthTest   bool
	FaceCulling bool
}

// Drawable reports whether a draw issued now would reach the GPU: a valid program and a
// live vertex array must be bound.
func (b Bindings) Drawable() bool {
	if b.Program == nil || !b.Program.Valid() {
		return false
	}
	return b.VertexArray != nil && !b.VertexArray.Released()
}

// BackendConfig is the creation-time configuration handed to a BackendFactory.
type BackendConfig struct {
	Width, Height        int
	PresentMode          PresentMode
	MSAA                 MSAASampleCount
	ForceFallbackAdapter bool
	ClearColor           [4]float32
}

// BackendInfo describes the device a backend ended up on.
type BackendInfo struct {
	Name     string
	Vendor   string
	Device   string
	Version  string
	Language shader.Language
}
