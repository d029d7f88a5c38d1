package shader

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// ShaderType identifies the pipeline stage a shader source belongs to.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex stage.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment stage, paired with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// Language identifies the shading language a backend consumes.
type Language int

const (
	// LanguageGLSL is GLSL 330 core, consumed by the OpenGL backend.
	LanguageGLSL Language = iota

	// LanguageWGSL is WGSL, consumed by the WebGPU backend.
	LanguageWGSL

	// LanguageNone is used by backends that never compile shaders.
	LanguageNone
)

// ProgramDescriptor names the source files of a vertex/fragment program.
type ProgramDescriptor struct {
	// Key uniquely identifies the program for caching and log records.
	Key string
	// VertexPath is the file holding the vertex stage.
	VertexPath string
	// FragmentPath is the file holding the fragment stage. WGSL programs usually
	// keep both stages in one file, in which case it equals VertexPath.
	FragmentPath string
}

// DescriptorFor resolves the conventional file names of program name inside dir.
// GLSL uses name.vert and name.frag; WGSL keeps both entry points in name.wgsl.
//
// Parameters:
//   - key: the program key
//   - dir: the shader asset directory
//   - name: the base file name without extension
//   - lang: the language the target backend consumes
//
// Returns:
//   - ProgramDescriptor: the resolved descriptor
func DescriptorFor(key, dir, name string, lang Language) ProgramDescriptor {
	switch lang {
	case LanguageWGSL:
		p := filepath.Join(dir, name+".wgsl")
		return ProgramDescriptor{Key: key, VertexPath: p, FragmentPath: p}
	default:
		return ProgramDescriptor{
			Key:          key,
			VertexPath:   filepath.Join(dir, name+".vert"),
			FragmentPath: filepath.Join(dir, name+".frag"),
		}
	}
}

// Program is a linked shader program plus its uniform state. Backends return a Program
// even when compilation fails; such a program reports Valid() == false and draws issued
// while it is bound are skipped.
type Program interface {
	// Key returns the descriptor key the program was created from.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Valid reports whether every stage was read, compiled and linked successfully.
	//
	// Returns:
	//   - bool: true if the program can be drawn with
	Valid() bool

	// Use makes this the current program on its backend. The binding is left in place
	// after subsequent draws.
	Use()

	// SetVec2 sets a 2-component float uniform by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - x, y: the components
	SetVec2(name string, x, y float32)

	// SetVec3 sets a 3-component float uniform by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - x, y, z: the components
	SetVec3(name string, x, y, z float32)

	// SetMat4 sets a column-major 4x4 matrix uniform by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - m: the matrix in column-major order
	SetMat4(name string, m [16]float32)

	// SetInt sets an integer uniform (including sampler units) by name. Unknown names are ignored.
	//
	// Parameters:
	//   - name: the uniform name as declared in the shader
	//   - v: the value
	SetInt(name string, v int32)

	// Release frees the program's GPU objects. Safe to call more than once.
	Release()
}

// ReadSource reads a shader stage from disk.
//
// Parameters:
//   - path: the source file path
//
// Returns:
//   - string: the file contents
//   - error: a wrapped error if the file cannot be read or is empty
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read shader source %q", path)
	}
	if len(data) == 0 {
		return "", errors.Errorf("shader source %q is empty", path)
	}
	return string(data), nil
}
