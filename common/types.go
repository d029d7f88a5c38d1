// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds decoded 8-bit pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is tightly packed row-major pixel data with Channels bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
	// Channels is 3 for RGB or 4 for RGBA.
	Channels int
}

// RGBA returns the staging data as 4-channel pixels, expanding RGB with an opaque alpha.
// The receiver is returned unchanged when it is already RGBA.
//
// Returns:
//   - TextureStagingData: the 4-channel equivalent
func (t TextureStagingData) RGBA() TextureStagingData {
	if t.Channels == 4 {
		return t
	}
	n := int(t.Width) * int(t.Height)
	out := make([]byte, n*4)
	for i := 0; i < n && i*3+2 < len(t.Pixels); i++ {
		out[i*4+0] = t.Pixels[i*3+0]
		out[i*4+1] = t.Pixels[i*3+1]
		out[i*4+2] = t.Pixels[i*3+2]
		out[i*4+3] = 0xFF
	}
	return TextureStagingData{Pixels: out, Width: t.Width, Height: t.Height, Channels: 4}
}

// ImportedTexture represents image data referenced by a model file.
// Embedded images (GLB buffer views, data URIs) carry their bytes in Data.
// External images carry a file path resolved relative to the model.
type ImportedTexture struct {
	// Name is an identifier for this texture, used in log records.
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw encoded image bytes for embedded textures.
	Data []byte

	// MimeType indicates the image format (e.g., "image/png", "image/jpeg").
	MimeType string

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Decode decodes the texture into 8-bit pixels. Opaque sources (JPEG, RGB PNG, grayscale)
// decode to 3 channels; anything carrying alpha decodes to 4.
//
// Returns:
//   - TextureStagingData: the decoded pixels
//   - error: error if the image cannot be read or decoded
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, errors.New("texture is nil")
	}

	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, errors.Wrapf(err, "failed to decode embedded image %q", t.Name)
		}
	case t.Path != "":
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, errors.Wrapf(fileErr, "failed to open texture file %s", t.Path)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, errors.Wrapf(err, "failed to decode texture file %s", t.Path)
		}
	default:
		return TextureStagingData{}, errors.Errorf("texture %q has neither data nor path", t.Name)
	}

	bounds := img.Bounds()
	nrgba := toNRGBA(img)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	staging := TextureStagingData{
		Pixels:   nrgba.Pix,
		Width:    uint32(t.Width),
		Height:   uint32(t.Height),
		Channels: 4,
	}
	if isOpaque(img) {
		staging.Pixels = stripAlpha(nrgba.Pix)
		staging.Channels = 3
	}
	return staging, nil
}

// toNRGBA converts img to tightly packed straight-alpha pixels, the layout TexImage2D and the
// RGBA8 texture formats expect. NRGBA sources are copied row by row so their color bytes survive
// untouched.
func toNRGBA(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		rowLen := bounds.Dx() * 4
		for y := 0; y < bounds.Dy(); y++ {
			srcOff := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+rowLen], src.Pix[srcOff:srcOff+rowLen])
		}
		return dst
	}
	xdraw.Draw(dst, dst.Bounds(), img, bounds.Min, xdraw.Src)
	return dst
}

// isOpaque reports whether the decoded image has no meaningful alpha channel.
func isOpaque(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr, *image.Gray, *image.Gray16, *image.CMYK:
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

func stripAlpha(pix []byte) []byte {
	out := make([]byte, len(pix)/4*3)
	for i, j := 0, 0; i+3 < len(pix); i, j = i+4, j+3 {
		out[j+0] = pix[i+0]
		out[j+1] = pix[i+1]
		out[j+2] = pix[i+2]
	}
	return out
}
