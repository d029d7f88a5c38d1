package loader

import (
	"io"
)

// loaderBackend decodes a model file into CPU-side primitives. Concrete implementations
// (e.g., gltfLoaderBackendImpl) handle format-specific details; GPU upload stays in the loader.
type loaderBackend interface {
	// Decode reads and extracts the model file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *importedModel: the extracted primitives and image sources
	//   - error: error if the file cannot be read or decoded
	Decode(path string) (*importedModel, error)

	// DecodeReader reads a self-contained model from a stream.
	//
	// Parameters:
	//   - name: the name used for the model in log records
	//   - r: the reader providing model data
	//   - baseDir: the directory external resources are resolved against
	//
	// Returns:
	//   - *importedModel: the extracted primitives and image sources
	//   - error: error if the stream cannot be decoded
	DecodeReader(name string, r io.Reader, baseDir string) (*importedModel, error)
}
