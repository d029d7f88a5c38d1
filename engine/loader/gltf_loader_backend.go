package loader

import (
	"io"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfLoaderBackendImpl is the loaderBackend for .gltf and .glb files, decoding with qmuntal/gltf.
type gltfLoaderBackendImpl struct{}

var _ loaderBackend = &gltfLoaderBackendImpl{}

// newGLTFLoaderBackend creates a new glTF loader backend.
//
// Returns:
//   - loaderBackend: the loader backend for glTF/GLB files
func newGLTFLoaderBackend() loaderBackend {
	return &gltfLoaderBackendImpl{}
}

func (b *gltfLoaderBackendImpl) Decode(path string) (*importedModel, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return extractDocument(doc, path, filepath.Dir(path)), nil
}

func (b *gltfLoaderBackendImpl) DecodeReader(name string, r io.Reader, baseDir string) (*importedModel, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", name)
	}
	return extractDocument(doc, name, baseDir), nil
}

// extractDocument walks every mesh and primitive of doc. Unusable primitives are logged and
// counted, never fatal.
func extractDocument(doc *gltf.Document, name, baseDir string) *importedModel {
	out := &importedModel{
		Name:   name,
		Images: make(map[int]*common.ImportedTexture),
	}
	meshes := newGLTFMeshExtractor(doc)
	materials := newGLTFMaterialExtractor(doc, baseDir)
	log := common.Logger()

	for meshIndex, mesh := range doc.Meshes {
		if mesh == nil {
			continue
		}
		for primIndex := range mesh.Primitives {
			prim, err := meshes.ExtractPrimitive(meshIndex, primIndex)
			switch {
			case errors.Is(err, ErrNoIndices):
				log.Debug("skipping non-indexed primitive", "model", name, "primitive", prim.Name)
				out.Skipped++
				continue
			case errors.Is(err, ErrNoPosition):
				log.Warn("skipping primitive without positions", "model", name, "primitive", prim.Name)
				out.Skipped++
				continue
			case err != nil:
				log.Warn("skipping malformed primitive", "model", name, "primitive", prim.Name, "error", err)
				out.Skipped++
				continue
			}

			if prim.ImageIndex >= 0 {
				if _, seen := out.Images[prim.ImageIndex]; !seen {
					img, err := materials.ExtractImage(prim.ImageIndex)
					if err != nil {
						log.Warn("base color texture unavailable", "model", name, "primitive", prim.Name, "error", err)
					}
					// A nil entry records the failure so later primitives do not retry it.
					out.Images[prim.ImageIndex] = img
				}
			}
			out.Primitives = append(out.Primitives, prim)
		}
	}
	return out
}
