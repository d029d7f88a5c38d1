package loader

import (
	"encoding/base64"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-iso/common"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
)

// gltfMaterialExtractorImpl is the implementation of the gltfMaterialExtractor interface.
type gltfMaterialExtractorImpl struct {
	doc     *gltf.Document
	baseDir string
}

// gltfMaterialExtractor resolves glTF images into encoded texture sources. Decoding happens
// later so it can run off the render thread.
type gltfMaterialExtractor interface {
	// ExtractImage resolves one image from a buffer view, a data URI or a file next to the model.
	//
	// Parameters:
	//   - imageIndex: the index of the image in the document
	//
	// Returns:
	//   - *common.ImportedTexture: the encoded source
	//   - error: error if the image cannot be located
	ExtractImage(imageIndex int) (*common.ImportedTexture, error)
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

// newGLTFMaterialExtractor creates a material extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded document
//   - baseDir: the directory external image URIs are relative to
//
// Returns:
//   - gltfMaterialExtractor: the material extractor
func newGLTFMaterialExtractor(doc *gltf.Document, baseDir string) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{doc: doc, baseDir: baseDir}
}

func (e *gltfMaterialExtractorImpl) ExtractImage(imageIndex int) (*common.ImportedTexture, error) {
	if imageIndex < 0 || imageIndex >= len(e.doc.Images) {
		return nil, errors.Errorf("image index %d out of range", imageIndex)
	}
	img := e.doc.Images[imageIndex]

	result := &common.ImportedTexture{
		Name:     img.Name,
		MimeType: img.MimeType,
	}
	if result.Name == "" {
		result.Name = "image" + strconv.Itoa(imageIndex)
	}

	switch {
	case img.BufferView != nil:
		data, err := e.readBufferViewRaw(int(*img.BufferView))
		if err != nil {
			return nil, errors.Wrap(err, "failed to read image buffer view")
		}
		result.Data = data
	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := decodeDataURI(img.URI)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode image data URI")
		}
		result.Data = data
		if result.MimeType == "" {
			result.MimeType = mimeType
		}
	case img.URI != "":
		result.Path = filepath.Join(e.baseDir, filepath.FromSlash(img.URI))
	default:
		return nil, errors.Errorf("image %d has no source", imageIndex)
	}
	return result, nil
}

// readBufferViewRaw reads raw bytes from a buffer view by index (not through an accessor).
func (e *gltfMaterialExtractorImpl) readBufferViewRaw(bufferViewIndex int) ([]byte, error) {
	doc := e.doc
	if bufferViewIndex < 0 || bufferViewIndex >= len(doc.BufferViews) {
		return nil, errors.Errorf("bufferView index %d out of range", bufferViewIndex)
	}

	bv := doc.BufferViews[bufferViewIndex]
	if int(bv.Buffer) >= len(doc.Buffers) {
		return nil, errors.Errorf("buffer index %d out of range", bv.Buffer)
	}

	buf := doc.Buffers[bv.Buffer]
	start := int(bv.ByteOffset)
	end := start + int(bv.ByteLength)
	if end > len(buf.Data) {
		return nil, errors.Errorf("bufferView exceeds buffer bounds: offset=%d length=%d bufSize=%d", start, bv.ByteLength, len(buf.Data))
	}

	data := make([]byte, end-start)
	copy(data, buf.Data[start:end])
	return data, nil
}

// decodeDataURI decodes a base64 data URI into raw bytes and extracts the MIME type.
func decodeDataURI(uri string) ([]byte, string, error) {
	// Format: data:[<mediatype>][;base64],<data>
	header, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data URI: no comma found")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.Errorf("data URI with media type %q is not base64", header)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to decode base64")
	}
	return data, mimeType, nil
}
