package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// vertexEntryRegex matches @vertex functions and captures the entry point name
	vertexEntryRegex = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)

	// fragmentEntryRegex matches @fragment functions and captures the entry point name
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> u: Uniforms;
	// or handle types: @group(1) @binding(0) var texture_diffuse: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// wgslVectorWidth maps WGSL vertex input types to their component count.
var wgslVectorWidth = map[string]int{
	"f32": 1, "i32": 1, "u32": 1,
	"vec2f": 2, "vec2<f32>": 2, "vec2i": 2, "vec2<i32>": 2, "vec2u": 2, "vec2<u32>": 2,
	"vec3f": 3, "vec3<f32>": 3, "vec3i": 3, "vec3<i32>": 3, "vec3u": 3, "vec3<u32>": 3,
	"vec4f": 4, "vec4<f32>": 4, "vec4i": 4, "vec4<i32>": 4, "vec4u": 4, "vec4<u32>": 4,
}

// ReflectWGSL extracts the entry points, vertex inputs, uniform block layout and resource
// bindings from WGSL source. Unrecognized constructs are skipped rather than reported.
//
// Parameters:
//   - source: the WGSL source code
//
// Returns:
//   - Reflection: everything the WebGPU backend needs to build pipelines and pack uniforms
func ReflectWGSL(source string) Reflection {
	cleaned := stripComments(source)
	structs := parseStructBlocks(cleaned)

	r := Reflection{
		VertexEntry:   parseEntryPoint(cleaned, ShaderTypeVertex),
		FragmentEntry: parseEntryPoint(cleaned, ShaderTypeFragment),
		Inputs:        parseVertexInputs(structs),
	}
	r.Bindings, r.Uniforms = parseBindings(cleaned, structs)
	return r
}

// parseVertexInputs collects the @location fields of every pure vertex input struct
// (at least one @location and no @builtin), ordered by location.
func parseVertexInputs(structs []parsedStruct) []VertexInput {
	var inputs []VertexInput
	seen := make(map[int]bool)
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		for _, f := range ps.fields {
			if f.location < 0 || seen[f.location] {
				continue
			}
			width, ok := wgslVectorWidth[f.typeName]
			if !ok {
				continue
			}
			seen[f.location] = true
			inputs = append(inputs, VertexInput{
				Location:   f.location,
				Name:       f.name,
				Type:       f.typeName,
				Components: width,
			})
		}
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Location < inputs[j].Location })
	return inputs
}

// parseBindings extracts all @group(N) @binding(M) declarations sorted by group then binding,
// and resolves the field layout of the first var<uniform> whose type is a known struct.
func parseBindings(cleaned string, structs []parsedStruct) ([]ResourceBinding, *UniformBlock) {
	structSizes := computeStructSizes(structs)
	byName := make(map[string]parsedStruct, len(structs))
	for _, ps := range structs {
		byName[ps.name] = ps
	}

	var bindings []ResourceBinding
	var block *UniformBlock
	for _, match := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		rb := ResourceBinding{
			Group:   group,
			Binding: binding,
			Name:    varName,
			Type:    typeName,
			Kind:    classifyResource(addressSpace, typeName),
		}
		bindings = append(bindings, rb)

		if rb.Kind != ResourceKindUniformBuffer || block != nil {
			continue
		}
		ps, ok := byName[typeName]
		if !ok {
			continue
		}
		fields, layout, ok := computeFieldOffsets(ps, structSizes)
		if !ok {
			continue
		}
		block = &UniformBlock{
			Group:    group,
			Binding:  binding,
			VarName:  varName,
			TypeName: typeName,
			Size:     roundUpAlign(16, layout.size),
			Fields:   fields,
		}
	}

	sort.Slice(bindings, func(i, j int) bool {
		if bindings[i].Group != bindings[j].Group {
			return bindings[i].Group < bindings[j].Group
		}
		return bindings[i].Binding < bindings[j].Binding
	})
	return bindings, block
}

// parseEntryPoint extracts the entry point function name for the given stage from
// comment-free WGSL source. Returns an empty string if none is declared.
//
// Parameters:
//   - cleaned: WGSL source with comments stripped
//   - shaderType: the stage to search for
//
// Returns:
//   - string: the entry point function name, or empty string if not found
func parseEntryPoint(cleaned string, shaderType ShaderType) string {
	var re *regexp.Regexp
	switch shaderType {
	case ShaderTypeVertex:
		re = vertexEntryRegex
	case ShaderTypeFragment:
		re = fragmentEntryRegex
	default:
		return ""
	}

	if match := re.FindStringSubmatch(cleaned); match != nil {
		return match[1]
	}
	return ""
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses the body of a struct block into individual fields,
// extracting @location and @builtin attributes along with the field name and type
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		field := parsedField{location: -1}
		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}
		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			if loc, err := strconv.Atoi(locMatch[1]); err == nil {
				field.location = loc
			}
		}

		fm := fieldRegex.FindStringSubmatch(line)
		if fm == nil {
			continue
		}
		field.name = fm[1]
		field.typeName = strings.TrimSpace(fm[2])
		fields = append(fields, field)
	}

	return fields
}

// classifyResource determines the kind of a binding from its address space and type.
func classifyResource(addressSpace, typeName string) ResourceKind {
	switch {
	case addressSpace == "uniform":
		return ResourceKindUniformBuffer
	case strings.HasPrefix(addressSpace, "storage"):
		return ResourceKindStorageBuffer
	case strings.HasPrefix(typeName, "sampler"):
		return ResourceKindSampler
	default:
		return ResourceKindTexture
	}
}

// isVertexInputStruct returns true if the struct is a pure vertex input, meaning
// it has at least one @location field and zero @builtin fields. This distinguishes
// vertex input structs from vertex output structs which mix @location with @builtin(position).
func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}
