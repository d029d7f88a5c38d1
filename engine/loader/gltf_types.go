package loader

import (
	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// Attribute semantics and shader locations used by the model program.
const (
	attributePosition  = "POSITION"
	attributeTexCoord0 = "TEXCOORD_0"

	positionLocation = 0
	texCoordLocation = 2
)

var (
	// ErrNoIndices marks a primitive drawn without an index accessor; such primitives are skipped.
	ErrNoIndices = errors.New("primitive has no index accessor")

	// ErrNoPosition marks a primitive without a POSITION attribute; such primitives are skipped.
	ErrNoPosition = errors.New("primitive has no POSITION attribute")

	// ErrUnsupportedComponent marks an accessor whose component type cannot be used where it appears.
	ErrUnsupportedComponent = errors.New("unsupported accessor component type")
)

// accessorData is the raw byte range an accessor resolves to, ready for upload.
type accessorData struct {
	Data          []byte
	Count         int
	ComponentType renderer.ComponentType
	Normalized    bool
	// Stride is the byte distance between elements.
	Stride int
}

// importedPrimitive is one drawable primitive decoded on the CPU.
type importedPrimitive struct {
	// Name identifies the primitive in log records and GPU labels.
	Name     string
	Indices  accessorData
	Position accessorData
	// TexCoord is nil when the primitive has no TEXCOORD_0.
	TexCoord *accessorData
	// ImageIndex is the glTF image of the base-color texture, or -1.
	ImageIndex int
}

// importedModel is the CPU-side result of decoding a model file.
type importedModel struct {
	Name       string
	Primitives []importedPrimitive
	// Images holds the encoded image sources referenced by primitives, keyed by glTF image index.
	Images map[int]*common.ImportedTexture
	// Skipped counts primitives dropped during extraction.
	Skipped int
}

// componentType maps a glTF accessor component type to the renderer's.
func componentType(ct gltf.ComponentType) (renderer.ComponentType, bool) {
	switch ct {
	case gltf.ComponentByte:
		return renderer.ComponentTypeByte, true
	case gltf.ComponentUbyte:
		return renderer.ComponentTypeUnsignedByte, true
	case gltf.ComponentShort:
		return renderer.ComponentTypeShort, true
	case gltf.ComponentUshort:
		return renderer.ComponentTypeUnsignedShort, true
	case gltf.ComponentUint:
		return renderer.ComponentTypeUnsignedInt, true
	case gltf.ComponentFloat:
		return renderer.ComponentTypeFloat, true
	default:
		return 0, false
	}
}
