package shader

// ResourceKind classifies a @group/@binding declaration.
type ResourceKind int

const (
	ResourceKindUniformBuffer ResourceKind = iota
	ResourceKindStorageBuffer
	ResourceKindTexture
	ResourceKindSampler
)

// VertexInput is one @location field of a vertex input struct.
type VertexInput struct {
	Location int
	Name     string
	Type     string
	// Components is the vector width of Type (1 for scalars).
	Components int
}

// UniformField is one member of a uniform struct with its WGSL layout.
type UniformField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// UniformBlock is a var<uniform> binding whose type is a struct.
type UniformBlock struct {
	Group    int
	Binding  int
	VarName  string
	TypeName string
	// Size is the struct size rounded up to 16 bytes, as required for uniform buffers.
	Size   uint64
	Fields []UniformField
}

// Field looks up a member by name.
func (b UniformBlock) Field(name string) (UniformField, bool) {
	for _, f := range b.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return UniformField{}, false
}

// ResourceBinding is one @group/@binding declaration.
type ResourceBinding struct {
	Group   int
	Binding int
	Name    string
	Type    string
	Kind    ResourceKind
}

// Reflection is what the WebGPU backend needs to know about a WGSL program.
type Reflection struct {
	VertexEntry   string
	FragmentEntry string
	Inputs        []VertexInput
	// Uniforms is the first var<uniform> struct binding, or nil when the program has none.
	Uniforms *UniformBlock
	Bindings []ResourceBinding
}

// Input returns the vertex input at location, if declared.
func (r Reflection) Input(location int) (VertexInput, bool) {
	for _, in := range r.Inputs {
		if in.Location == location {
			return in, true
		}
	}
	return VertexInput{}, false
}

// HasTextures reports whether any texture or sampler binding is declared.
func (r Reflection) HasTextures() bool {
	for _, b := range r.Bindings {
		if b.Kind == ResourceKindTexture || b.Kind == ResourceKindSampler {
			return true
		}
	}
	return false
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}
