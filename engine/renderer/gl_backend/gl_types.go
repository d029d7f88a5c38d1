package gl_backend

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-iso/engine/renderer"
	"github.com/go-gl/gl/v3.3-core/gl"
)

// glComponentType maps a component type to its GL enum.
func glComponentType(ct renderer.ComponentType) (uint32, bool) {
	switch ct {
	case renderer.ComponentTypeByte:
		return gl.BYTE, true
	case renderer.ComponentTypeUnsignedByte:
		return gl.UNSIGNED_BYTE, true
	case renderer.ComponentTypeShort:
		return gl.SHORT, true
	case renderer.ComponentTypeUnsignedShort:
		return gl.UNSIGNED_SHORT, true
	case renderer.ComponentTypeUnsignedInt:
		return gl.UNSIGNED_INT, true
	case renderer.ComponentTypeFloat:
		return gl.FLOAT, true
	default:
		return 0, false
	}
}

// glIndexType maps an index component type to its GL enum. GL draws u8, u16 and u32 indices
// natively.
func glIndexType(ct renderer.ComponentType) (uint32, bool) {
	if !ct.IsIndexType() {
		return 0, false
	}
	return glComponentType(ct)
}

func glWrap(w renderer.WrapMode) int32 {
	switch w {
	case renderer.WrapClampToEdge:
		return gl.CLAMP_TO_EDGE
	case renderer.WrapMirroredRepeat:
		return gl.MIRRORED_REPEAT
	default:
		return gl.REPEAT
	}
}

func glMagFilter(f renderer.FilterMode) int32 {
	if f == renderer.FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

// glMinFilter combines the min and mipmap filters into one GL enum. Mipmap filtering only
// applies when the texture has a mip chain.
func glMinFilter(min, mip renderer.FilterMode, mipmapped bool) int32 {
	nearest := min == renderer.FilterNearest
	if !mipmapped {
		if nearest {
			return gl.NEAREST
		}
		return gl.LINEAR
	}
	switch {
	case nearest && mip == renderer.FilterNearest:
		return gl.NEAREST_MIPMAP_NEAREST
	case nearest:
		return gl.NEAREST_MIPMAP_LINEAR
	case mip == renderer.FilterNearest:
		return gl.LINEAR_MIPMAP_NEAREST
	default:
		return gl.LINEAR_MIPMAP_LINEAR
	}
}

// glPixelFormat returns the internal and upload formats for a texture format.
func glPixelFormat(f renderer.TextureFormat) (internal int32, format uint32) {
	if f == renderer.TextureFormatRGB8 {
		return gl.RGB8, gl.RGB
	}
	return gl.RGBA8, gl.RGBA
}

// trimInfoLog strips the trailing NUL and whitespace GL leaves in info logs.
func trimInfoLog(buf []byte) string {
	return strings.TrimRight(string(buf), "\x00 \r\n\t")
}
