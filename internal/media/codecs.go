package media

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Encoder writes img in one particular format.
type Encoder func(w io.Writer, img image.Image) error

// defaultEncoders maps the format names reported by image.Decode to a
// matching encoder. webp decodes but has no encoder, so a webp attachment
// fails at the encode step and resolves as not an image.
func defaultEncoders(jpegQuality int) map[string]Encoder {
	return map[string]Encoder{
		"png": png.Encode,
		"jpeg": func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		},
		"gif": func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		},
		"bmp": bmp.Encode,
		"tiff": func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		},
	}
}
