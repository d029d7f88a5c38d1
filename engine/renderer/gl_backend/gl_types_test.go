package gl_backend

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/go-gl/gl/v3.3-core/gl"
)

func TestGLIndexType(t *testing.T) {
	tests := []struct {
		ct   renderer.ComponentType
		want uint32
		ok   bool
	}{
		{renderer.ComponentTypeUnsignedByte, gl.UNSIGNED_BYTE, true},
		{renderer.ComponentTypeUnsignedShort, gl.UNSIGNED_SHORT, true},
		{renderer.ComponentTypeUnsignedInt, gl.UNSIGNED_INT, true},
		{renderer.ComponentTypeFloat, 0, false},
		{renderer.ComponentTypeShort, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			got, ok := glIndexType(tt.ct)
			if ok != tt.ok || got != tt.want {
				t.Errorf("glIndexType(%s) = (%#x, %v), want (%#x, %v)", tt.ct, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestGLMinFilter(t *testing.T) {
	tests := []struct {
		name      string
		min, mip  renderer.FilterMode
		mipmapped bool
		want      int32
	}{
		{"model texture", renderer.FilterLinear, renderer.FilterLinear, true, gl.LINEAR_MIPMAP_LINEAR},
		{"no mips", renderer.FilterLinear, renderer.FilterLinear, false, gl.LINEAR},
		{"nearest no mips", renderer.FilterNearest, renderer.FilterLinear, false, gl.NEAREST},
		{"nearest mips", renderer.FilterNearest, renderer.FilterNearest, true, gl.NEAREST_MIPMAP_NEAREST},
		{"linear nearest mip", renderer.FilterLinear, renderer.FilterNearest, true, gl.LINEAR_MIPMAP_NEAREST},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := glMinFilter(tt.min, tt.mip, tt.mipmapped); got != tt.want {
				t.Errorf("glMinFilter = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestGLPixelFormat(t *testing.T) {
	if internal, format := glPixelFormat(renderer.TextureFormatRGB8); internal != gl.RGB8 || format != gl.RGB {
		t.Errorf("RGB8 = (%#x, %#x)", internal, format)
	}
	if internal, format := glPixelFormat(renderer.TextureFormatRGBA8); internal != gl.RGBA8 || format != gl.RGBA {
		t.Errorf("RGBA8 = (%#x, %#x)", internal, format)
	}
}

func TestTrimInfoLog(t *testing.T) {
	if got := trimInfoLog([]byte("0:1: error\n\x00")); got != "0:1: error" {
		t.Errorf("trimInfoLog = %q", got)
	}
}

func TestGLUploadTargetAvoidsVertexArrayState(t *testing.T) {
	for _, u := range []renderer.BufferUsage{renderer.BufferUsageVertex, renderer.BufferUsageIndex} {
		got := glUploadTarget(u)
		if got == gl.ELEMENT_ARRAY_BUFFER || got == 0 {
			t.Errorf("glUploadTarget(%v) = %#x, want a bind point outside vertex array state", u, got)
		}
	}
}
