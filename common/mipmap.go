package common

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// MipLevel is one level of a CPU-generated mip chain in RGBA8.
type MipLevel struct {
	Pixels        []byte
	Width, Height uint32
}

// MipLevelCount returns the number of levels in a full chain down to 1x1.
func MipLevelCount(width, height uint32) uint32 {
	n := uint32(1)
	for width > 1 || height > 1 {
		width = max(width/2, 1)
		height = max(height/2, 1)
		n++
	}
	return n
}

// GenerateMipChain builds a full mip chain for APIs without hardware mip generation.
// Level 0 is the input itself; each following level halves both dimensions (floored,
// minimum 1) using bilinear filtering from golang.org/x/image/draw.
//
// Parameters:
//   - tex: the source pixels; RGB input is expanded to RGBA first
//
// Returns:
//   - []MipLevel: the chain, level 0 first
func GenerateMipChain(tex TextureStagingData) []MipLevel {
	tex = tex.RGBA()
	if tex.Width == 0 || tex.Height == 0 {
		return nil
	}

	levels := make([]MipLevel, 0, MipLevelCount(tex.Width, tex.Height))
	levels = append(levels, MipLevel{Pixels: tex.Pixels, Width: tex.Width, Height: tex.Height})

	prev := &image.RGBA{
		Pix:    tex.Pixels,
		Stride: int(tex.Width) * 4,
		Rect:   image.Rect(0, 0, int(tex.Width), int(tex.Height)),
	}
	w, h := tex.Width, tex.Height
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		next := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		xdraw.BiLinear.Scale(next, next.Bounds(), prev, prev.Bounds(), xdraw.Src, nil)
		levels = append(levels, MipLevel{Pixels: next.Pix, Width: w, Height: h})
		prev = next
	}
	return levels
}
