package wgpu_backend

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/Carmen-Shannon/oxy-iso/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexSlot is what gets bound to one vertex buffer slot for a draw. A nil buffer means the
// shader input has no matching attribute and reads from the shared zero buffer.
type vertexSlot struct {
	buffer renderer.Buffer
	offset uint64
}

// resolvedInputs pairs the pipeline vertex layouts with the buffers bound to each slot.
type resolvedInputs struct {
	layouts []wgpu.VertexBufferLayout
	slots   []vertexSlot
}

// vertexFormat maps an attribute to a WebGPU vertex format readable by a float shader input.
// Non-normalized integer attributes and 1 or 3 component 8/16-bit attributes have no such
// format and report false.
func vertexFormat(ct renderer.ComponentType, components int, normalized bool) (wgpu.VertexFormat, bool) {
	if ct == renderer.ComponentTypeFloat {
		switch components {
		case 1:
			return wgpu.VertexFormatFloat32, true
		case 2:
			return wgpu.VertexFormatFloat32x2, true
		case 3:
			return wgpu.VertexFormatFloat32x3, true
		case 4:
			return wgpu.VertexFormatFloat32x4, true
		}
		return 0, false
	}
	if !normalized || (components != 2 && components != 4) {
		return 0, false
	}
	wide := components == 4
	switch ct {
	case renderer.ComponentTypeUnsignedByte:
		if wide {
			return wgpu.VertexFormatUnorm8x4, true
		}
		return wgpu.VertexFormatUnorm8x2, true
	case renderer.ComponentTypeByte:
		if wide {
			return wgpu.VertexFormatSnorm8x4, true
		}
		return wgpu.VertexFormatSnorm8x2, true
	case renderer.ComponentTypeUnsignedShort:
		if wide {
			return wgpu.VertexFormatUnorm16x4, true
		}
		return wgpu.VertexFormatUnorm16x2, true
	case renderer.ComponentTypeShort:
		if wide {
			return wgpu.VertexFormatSnorm16x4, true
		}
		return wgpu.VertexFormatSnorm16x2, true
	}
	return 0, false
}

// floatFormat is the format used to feed an unmatched input from the zero buffer.
func floatFormat(components int) wgpu.VertexFormat {
	f, _ := vertexFormat(renderer.ComponentTypeFloat, components, false)
	return f
}

// resolveVertexInputs matches every shader input to an attribute of the vertex array. Each
// input gets its own buffer slot so attributes may live in separate buffers. Inputs without a
// usable attribute read constant zeros through a zero-stride layout.
//
// Parameters:
//   - inputs: the reflected shader inputs
//   - desc: the vertex array layout
//
// Returns:
//   - resolvedInputs: layouts and slot bindings in the same order
//   - []int: locations that fell back to zeros, for logging
func resolveVertexInputs(inputs []shader.VertexInput, desc renderer.VertexArrayDescriptor) (resolvedInputs, []int) {
	var out resolvedInputs
	var missing []int
	for _, in := range inputs {
		attr, ok := desc.Attribute(in.Location)
		var format wgpu.VertexFormat
		if ok {
			format, ok = vertexFormat(attr.ComponentType, attr.Components, attr.Normalized)
		}
		// Vertex buffer offsets must be 4-byte aligned.
		if ok && attr.Offset%4 != 0 {
			ok = false
		}
		if !ok {
			missing = append(missing, in.Location)
			out.layouts = append(out.layouts, wgpu.VertexBufferLayout{
				ArrayStride: 0,
				StepMode:    wgpu.VertexStepModeVertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: floatFormat(in.Components), Offset: 0, ShaderLocation: uint32(in.Location)},
				},
			})
			out.slots = append(out.slots, vertexSlot{})
			continue
		}
		out.layouts = append(out.layouts, wgpu.VertexBufferLayout{
			ArrayStride: uint64(attr.Stride),
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: format, Offset: 0, ShaderLocation: uint32(in.Location)},
			},
		})
		out.slots = append(out.slots, vertexSlot{buffer: attr.Buffer, offset: uint64(attr.Offset)})
	}
	return out, missing
}

// widenIndices converts u8 indices, which WebGPU cannot index with, to u16.
func widenIndices(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// padTo4 returns data extended with zeros to a multiple of four bytes, as queue writes require.
func padTo4(data []byte) []byte {
	if rem := len(data) % 4; rem != 0 {
		padded := make([]byte, len(data)+4-rem)
		copy(padded, data)
		return padded
	}
	return data
}

// indexFormat maps an index component type to a WebGPU index format. U8 maps to u16 because
// u8 index buffers are widened on upload.
func indexFormat(ct renderer.ComponentType) (wgpu.IndexFormat, bool) {
	switch ct {
	case renderer.ComponentTypeUnsignedByte, renderer.ComponentTypeUnsignedShort:
		return wgpu.IndexFormatUint16, true
	case renderer.ComponentTypeUnsignedInt:
		return wgpu.IndexFormatUint32, true
	default:
		return 0, false
	}
}

func addressMode(w renderer.WrapMode) wgpu.AddressMode {
	switch w {
	case renderer.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case renderer.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}

func filterMode(f renderer.FilterMode) wgpu.FilterMode {
	if f == renderer.FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func mipmapFilterMode(f renderer.FilterMode) wgpu.MipmapFilterMode {
	if f == renderer.FilterNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}

// pickSurfaceFormat prefers a linear 8-bit format so output matches the OpenGL backend's
// default framebuffer, falling back to the first supported format.
func pickSurfaceFormat(formats []wgpu.TextureFormat) wgpu.TextureFormat {
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8Unorm || f == wgpu.TextureFormatRGBA8Unorm {
			return f
		}
	}
	if len(formats) == 0 {
		return wgpu.TextureFormatBGRA8Unorm
	}
	return formats[0]
}
