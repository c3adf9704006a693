package imageprocessing

import (
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// defaultJPEGQuality is used when the requested quality is outside [0,1]
const defaultJPEGQuality = 92

type pngCodec struct{}

func (pngCodec) Format() string   { return "png" }
func (pngCodec) MimeType() string { return "image/png" }

func (pngCodec) Encode(w io.Writer, img image.Image, _ float64) error {
	return png.Encode(w, img)
}

type jpegCodec struct {
	background color.RGBA
}

func (jpegCodec) Format() string   { return "jpeg" }
func (jpegCodec) MimeType() string { return "image/jpeg" }

// Encode flattens transparency onto the codec background since JPEG has no alpha channel
func (c jpegCodec) Encode(w io.Writer, img image.Image, quality float64) error {
	return jpeg.Encode(w, flatten(img, c.background), &jpeg.Options{
		Quality: qualityPercent(quality, defaultJPEGQuality),
	})
}

type gifCodec struct{}

func (gifCodec) Format() string   { return "gif" }
func (gifCodec) MimeType() string { return "image/gif" }

func (gifCodec) Encode(w io.Writer, img image.Image, _ float64) error {
	return gif.Encode(w, img, nil)
}

type bmpCodec struct{}

func (bmpCodec) Format() string   { return "bmp" }
func (bmpCodec) MimeType() string { return "image/bmp" }

func (bmpCodec) Encode(w io.Writer, img image.Image, _ float64) error {
	return bmp.Encode(w, img)
}

type tiffCodec struct{}

func (tiffCodec) Format() string   { return "tiff" }
func (tiffCodec) MimeType() string { return "image/tiff" }

func (tiffCodec) Encode(w io.Writer, img image.Image, _ float64) error {
	return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
}

func init() {
	mustRegister(pngCodec{})
	mustRegister(jpegCodec{background: color.RGBA{R: 255, G: 255, B: 255, A: 255}})
	mustRegister(gifCodec{})
	mustRegister(bmpCodec{})
	mustRegister(tiffCodec{})
}
