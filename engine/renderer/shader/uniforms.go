package shader

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"
	"sync"
)

// UniformKind identifies the shape of a uniform value.
type UniformKind int

const (
	UniformVec2 UniformKind = iota
	UniformVec3
	UniformMat4
	UniformInt
)

// UniformValue is one uniform as last set through a Program setter.
type UniformValue struct {
	Kind   UniformKind
	Floats [16]float32
	Int    int32
}

// Components returns the float components the value carries (empty for UniformInt).
func (v UniformValue) Components() []float32 {
	switch v.Kind {
	case UniformVec2:
		return v.Floats[:2]
	case UniformVec3:
		return v.Floats[:3]
	case UniformMat4:
		return v.Floats[:]
	default:
		return nil
	}
}

// Uniforms is a CPU-side uniform store for backends without per-name uniform
// upload (WebGPU packs it into a buffer per draw; the headless backend snapshots it).
type Uniforms struct {
	mu     sync.Mutex
	values map[string]UniformValue
}

// NewUniforms returns an empty store.
func NewUniforms() *Uniforms {
	return &Uniforms{values: make(map[string]UniformValue)}
}

func (u *Uniforms) set(name string, v UniformValue) {
	u.mu.Lock()
	u.values[name] = v
	u.mu.Unlock()
}

func (u *Uniforms) SetVec2(name string, x, y float32) {
	v := UniformValue{Kind: UniformVec2}
	v.Floats[0], v.Floats[1] = x, y
	u.set(name, v)
}

func (u *Uniforms) SetVec3(name string, x, y, z float32) {
	v := UniformValue{Kind: UniformVec3}
	v.Floats[0], v.Floats[1], v.Floats[2] = x, y, z
	u.set(name, v)
}

func (u *Uniforms) SetMat4(name string, m [16]float32) {
	u.set(name, UniformValue{Kind: UniformMat4, Floats: m})
}

func (u *Uniforms) SetInt(name string, i int32) {
	u.set(name, UniformValue{Kind: UniformInt, Int: i})
}

// Get returns the value stored under name.
func (u *Uniforms) Get(name string) (UniformValue, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	v, ok := u.values[name]
	return v, ok
}

// Snapshot copies the current values.
func (u *Uniforms) Snapshot() map[string]UniformValue {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make(map[string]UniformValue, len(u.values))
	for k, v := range u.values {
		out[k] = v
	}
	return out
}

// Names returns the stored names in sorted order.
func (u *Uniforms) Names() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	names := make([]string, 0, len(u.values))
	for k := range u.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Pack writes the stored values into a byte block laid out per block. Fields that were
// never set stay zero; values whose name is not a field of the block are skipped.
// Integer values written to f32 fields are converted, and float values written to
// integer fields are truncated.
//
// Parameters:
//   - block: the reflected uniform block layout
//
// Returns:
//   - []byte: a little-endian block of block.Size bytes
func (u *Uniforms) Pack(block UniformBlock) []byte {
	out := make([]byte, block.Size)
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, f := range block.Fields {
		v, ok := u.values[f.Name]
		if !ok {
			continue
		}
		packField(out, f, v)
	}
	return out
}

func packField(out []byte, f UniformField, v UniformValue) {
	scalar := fieldScalar(f.Type)
	put := func(i int, fv float32, iv int32) {
		off := int(f.Offset) + i*4
		if off+4 > len(out) || uint64(i*4) >= f.Size {
			return
		}
		if scalar == "f32" {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(fv))
		} else {
			binary.LittleEndian.PutUint32(out[off:], uint32(iv))
		}
	}

	if v.Kind == UniformInt {
		put(0, float32(v.Int), v.Int)
		return
	}

	comps := v.Components()
	if v.Kind == UniformMat4 && strings.HasPrefix(f.Type, "mat3x3") {
		// mat3x3 columns are padded to vec4 stride; copy the upper-left 3x3.
		for c := range 3 {
			for r := range 3 {
				val := comps[c*4+r]
				put(c*4+r, val, int32(val))
			}
		}
		return
	}
	for i, c := range comps {
		put(i, c, int32(c))
	}
}

// fieldScalar returns the scalar element type of a WGSL field type.
func fieldScalar(t string) string {
	switch {
	case strings.Contains(t, "i32") || strings.HasSuffix(t, "i") && strings.HasPrefix(t, "vec"):
		return "i32"
	case strings.Contains(t, "u32") || strings.HasSuffix(t, "u") && strings.HasPrefix(t, "vec"):
		return "u32"
	default:
		return "f32"
	}
}
