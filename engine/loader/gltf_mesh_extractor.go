package loader

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfMeshExtractorImpl is the implementation of the gltfMeshExtractor interface.
type gltfMeshExtractorImpl struct {
	doc *gltf.Document
}

// gltfMeshExtractor turns the primitives of a decoded glTF document into upload-ready
// byte ranges. It never touches the GPU.
type gltfMeshExtractor interface {
	// ExtractPrimitive extracts one primitive of one mesh.
	//
	// Parameters:
	//   - meshIndex: the index of the mesh in the document
	//   - primIndex: the index of the primitive within the mesh
	//
	// Returns:
	//   - importedPrimitive: the extracted primitive
	//   - error: ErrNoIndices, ErrNoPosition, or a wrapped accessor error when the primitive is unusable
	ExtractPrimitive(meshIndex, primIndex int) (importedPrimitive, error)
}

var _ gltfMeshExtractor = &gltfMeshExtractorImpl{}

// newGLTFMeshExtractor creates a mesh extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//
// Returns:
//   - gltfMeshExtractor: the mesh extractor
func newGLTFMeshExtractor(doc *gltf.Document) gltfMeshExtractor {
	return &gltfMeshExtractorImpl{doc: doc}
}

func (e *gltfMeshExtractorImpl) ExtractPrimitive(meshIndex, primIndex int) (importedPrimitive, error) {
	mesh := e.doc.Meshes[meshIndex]
	prim := mesh.Primitives[primIndex]

	out := importedPrimitive{
		Name:       primitiveName(mesh.Name, meshIndex, primIndex),
		ImageIndex: -1,
	}

	if prim.Mode != gltf.PrimitiveTriangles {
		return out, errors.Errorf("unsupported primitive mode %d, only triangles are drawn", prim.Mode)
	}
	if prim.Indices == nil {
		return out, ErrNoIndices
	}
	posIndex, ok := prim.Attributes[attributePosition]
	if !ok {
		return out, ErrNoPosition
	}

	indices, err := e.readAccessor(int(*prim.Indices), 1)
	if err != nil {
		return out, errors.Wrap(err, "indices")
	}
	if !indices.ComponentType.IsIndexType() {
		return out, errors.Wrapf(ErrUnsupportedComponent, "indices use %s", indices.ComponentType)
	}
	out.Indices = indices

	position, err := e.readAccessor(int(posIndex), 3)
	if err != nil {
		return out, errors.Wrap(err, attributePosition)
	}
	out.Position = position

	if uvIndex, ok := prim.Attributes[attributeTexCoord0]; ok {
		uv, err := e.readAccessor(int(uvIndex), 2)
		if err != nil {
			return out, errors.Wrap(err, attributeTexCoord0)
		}
		out.TexCoord = &uv
	}

	out.ImageIndex = e.baseColorImage(prim)
	return out, nil
}

// readAccessor resolves accessor → buffer view → buffer. The returned range starts at the
// accessor's first element and runs to the end of the view, clamped to the buffer.
func (e *gltfMeshExtractorImpl) readAccessor(index, components int) (accessorData, error) {
	doc := e.doc
	if index < 0 || index >= len(doc.Accessors) {
		return accessorData{}, errors.Errorf("accessor %d out of range", index)
	}
	acc := doc.Accessors[index]
	if acc.BufferView == nil {
		return accessorData{}, errors.Errorf("accessor %d has no buffer view", index)
	}
	viewIndex := int(*acc.BufferView)
	if viewIndex >= len(doc.BufferViews) {
		return accessorData{}, errors.Errorf("accessor %d references buffer view %d out of range", index, viewIndex)
	}
	view := doc.BufferViews[viewIndex]
	if int(view.Buffer) >= len(doc.Buffers) {
		return accessorData{}, errors.Errorf("buffer view %d references buffer %d out of range", viewIndex, view.Buffer)
	}
	buf := doc.Buffers[view.Buffer]

	ct, ok := componentType(acc.ComponentType)
	if !ok {
		return accessorData{}, errors.Wrapf(ErrUnsupportedComponent, "accessor %d", index)
	}

	start := int(view.ByteOffset) + int(acc.ByteOffset)
	end := min(int(view.ByteOffset)+int(view.ByteLength), len(buf.Data))
	if start >= end {
		return accessorData{}, errors.Errorf("accessor %d starts at %d outside its %d byte buffer", index, start, len(buf.Data))
	}

	elementSize := components * ct.Size()
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = elementSize
	}
	count := int(acc.Count)
	if count > 0 && (count-1)*stride+elementSize > end-start {
		return accessorData{}, errors.Errorf("accessor %d needs %d elements of stride %d but only %d bytes remain",
			index, count, stride, end-start)
	}

	return accessorData{
		Data:          buf.Data[start:end],
		Count:         count,
		ComponentType: ct,
		Normalized:    acc.Normalized,
		Stride:        stride,
	}, nil
}

// baseColorImage returns the image index of the primitive's base-color texture, or -1.
func (e *gltfMeshExtractorImpl) baseColorImage(prim *gltf.Primitive) int {
	doc := e.doc
	if prim.Material == nil || int(*prim.Material) >= len(doc.Materials) {
		return -1
	}
	pbr := doc.Materials[*prim.Material].PBRMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil {
		return -1
	}
	texIndex := int(pbr.BaseColorTexture.Index)
	if texIndex >= len(doc.Textures) {
		return -1
	}
	tex := doc.Textures[texIndex]
	if tex.Source == nil || int(*tex.Source) >= len(doc.Images) {
		return -1
	}
	return int(*tex.Source)
}

func primitiveName(meshName string, meshIndex, primIndex int) string {
	if meshName == "" {
		meshName = fmt.Sprintf("mesh%d", meshIndex)
	}
	return fmt.Sprintf("%s/%d", meshName, primIndex)
}
