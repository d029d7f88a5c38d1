package shader

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const modelWGSL = `
// flat-textured model
struct Uniforms {
    projection: mat4x4<f32>,
    view: mat4x4<f32>,
    model: mat4x4<f32>,
    uColor: vec3f,
};

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(1) @binding(1) var texture_sampler: sampler;
@group(1) @binding(0) var texture_diffuse: texture_2d<f32>;

struct VertexInput {
    @location(0) aPos: vec3f,
    @location(2) aTexCoord: vec2f,
};

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) uv: vec2f,
};

/* block comment with @vertex fn decoy() */
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.position = u.projection * u.view * u.model * vec4f(in.aPos, 1.0);
    out.uv = in.aTexCoord;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return textureSample(texture_diffuse, texture_sampler, in.uv) * vec4f(u.uColor, 1.0);
}
`

const tileWGSL = `
struct Uniforms {
    uResolution: vec2f,
    uSize: vec2f,
    uOffset: vec2f,
    uColor: vec3f,
    uFlags: i32,
};
@group(0) @binding(0) var<uniform> u: Uniforms;
struct VertexInput { @location(0) aPos: vec2f };
@vertex fn vs(in: VertexInput) -> @builtin(position) vec4f { return vec4f(in.aPos, 0.0, 1.0); }
@fragment fn fs() -> @location(0) vec4f { return vec4f(u.uColor, 1.0); }
`

func TestReflectWGSLModel(t *testing.T) {
	r := ReflectWGSL(modelWGSL)

	if r.VertexEntry != "vs_main" || r.FragmentEntry != "fs_main" {
		t.Fatalf("entry points = %q/%q, want vs_main/fs_main", r.VertexEntry, r.FragmentEntry)
	}

	if len(r.Inputs) != 2 {
		t.Fatalf("inputs = %+v, want 2", r.Inputs)
	}
	if in, ok := r.Input(0); !ok || in.Components != 3 || in.Name != "aPos" {
		t.Errorf("location 0 = %+v", in)
	}
	if in, ok := r.Input(2); !ok || in.Components != 2 {
		t.Errorf("location 2 = %+v", in)
	}
	if _, ok := r.Input(1); ok {
		t.Error("location 1 should not be declared")
	}

	if r.Uniforms == nil {
		t.Fatal("uniform block not reflected")
	}
	wantOffsets := map[string]uint64{"projection": 0, "view": 64, "model": 128, "uColor": 192}
	for name, off := range wantOffsets {
		f, ok := r.Uniforms.Field(name)
		if !ok || f.Offset != off {
			t.Errorf("field %s = %+v, want offset %d", name, f, off)
		}
	}
	if r.Uniforms.Size != 208 {
		t.Errorf("block size = %d, want 208", r.Uniforms.Size)
	}

	if !r.HasTextures() {
		t.Fatal("texture bindings not reflected")
	}
	if len(r.Bindings) != 3 {
		t.Fatalf("bindings = %+v, want 3", r.Bindings)
	}
	if b := r.Bindings[1]; b.Group != 1 || b.Binding != 0 || b.Kind != ResourceKindTexture {
		t.Errorf("bindings not sorted by group/binding: %+v", r.Bindings)
	}
	if b := r.Bindings[2]; b.Kind != ResourceKindSampler || b.Name != "texture_sampler" {
		t.Errorf("sampler binding = %+v", b)
	}
}

func TestReflectWGSLTileLayout(t *testing.T) {
	r := ReflectWGSL(tileWGSL)
	if r.Uniforms == nil {
		t.Fatal("uniform block not reflected")
	}
	tests := []struct {
		name   string
		offset uint64
		size   uint64
	}{
		{"uResolution", 0, 8},
		{"uSize", 8, 8},
		{"uOffset", 16, 8},
		{"uColor", 32, 12},
		{"uFlags", 44, 4},
	}
	for _, tt := range tests {
		f, ok := r.Uniforms.Field(tt.name)
		if !ok || f.Offset != tt.offset || f.Size != tt.size {
			t.Errorf("%s = %+v, want offset %d size %d", tt.name, f, tt.offset, tt.size)
		}
	}
	if r.Uniforms.Size != 48 {
		t.Errorf("block size = %d, want 48", r.Uniforms.Size)
	}
	if r.HasTextures() {
		t.Error("tile shader declares no textures")
	}
}

func TestUniformsPack(t *testing.T) {
	block := *ReflectWGSL(tileWGSL).Uniforms
	u := NewUniforms()
	u.SetVec2("uResolution", 800, 600)
	u.SetVec2("uOffset", 432, 116)
	u.SetVec3("uColor", 0, 1, 0)
	u.SetInt("uFlags", 7)
	u.SetInt("texture_diffuse", 0)

	data := u.Pack(block)
	if len(data) != int(block.Size) {
		t.Fatalf("packed %d bytes, want %d", len(data), block.Size)
	}
	f32 := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[off:])) }

	if f32(0) != 800 || f32(4) != 600 {
		t.Errorf("uResolution = %v,%v", f32(0), f32(4))
	}
	if f32(8) != 0 || f32(12) != 0 {
		t.Errorf("unset uSize should be zero, got %v,%v", f32(8), f32(12))
	}
	if f32(16) != 432 || f32(20) != 116 {
		t.Errorf("uOffset = %v,%v", f32(16), f32(20))
	}
	if f32(32) != 0 || f32(36) != 1 || f32(40) != 0 {
		t.Errorf("uColor = %v,%v,%v", f32(32), f32(36), f32(40))
	}
	if got := int32(binary.LittleEndian.Uint32(data[44:])); got != 7 {
		t.Errorf("uFlags = %d, want 7", got)
	}
}

func TestUniformsSnapshotIsCopy(t *testing.T) {
	u := NewUniforms()
	u.SetVec3("uColor", 1, 2, 3)
	snap := u.Snapshot()
	u.SetVec3("uColor", 4, 5, 6)
	if got := snap["uColor"].Components(); got[0] != 1 {
		t.Fatalf("snapshot changed after later set: %v", got)
	}
	if names := u.Names(); len(names) != 1 || names[0] != "uColor" {
		t.Fatalf("Names() = %v", names)
	}
}

func TestDescriptorFor(t *testing.T) {
	glsl := DescriptorFor("tile", "data/shaders", "tile", LanguageGLSL)
	if glsl.VertexPath != filepath.Join("data/shaders", "tile.vert") || glsl.FragmentPath != filepath.Join("data/shaders", "tile.frag") {
		t.Errorf("GLSL descriptor = %+v", glsl)
	}
	wgsl := DescriptorFor("tile", "data/shaders", "tile", LanguageWGSL)
	if wgsl.VertexPath != wgsl.FragmentPath || filepath.Ext(wgsl.VertexPath) != ".wgsl" {
		t.Errorf("WGSL descriptor = %+v", wgsl)
	}
}

func TestReadSource(t *testing.T) {
	dir := t.TempDir()
	if _, err := ReadSource(filepath.Join(dir, "missing.vert")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(dir, "empty.frag")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSource(empty); err == nil {
		t.Error("expected error for empty file")
	}

	ok := filepath.Join(dir, "ok.wgsl")
	if err := os.WriteFile(ok, []byte(tileWGSL), 0o644); err != nil {
		t.Fatal(err)
	}
	src, err := ReadSource(ok)
	if err != nil || src != tileWGSL {
		t.Errorf("ReadSource = %q, %v", src, err)
	}
}
