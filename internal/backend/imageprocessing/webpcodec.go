package imageprocessing

import (
	"image"
	"io"

	"github.com/chai2010/webp"
)

// defaultWebPQuality is used when the requested quality is outside [0,1]
const defaultWebPQuality = 80

// webpCodec encodes lossy WebP with alpha
type webpCodec struct{}

func (webpCodec) Format() string   { return "webp" }
func (webpCodec) MimeType() string { return "image/webp" }

func (webpCodec) Encode(w io.Writer, img image.Image, quality float64) error {
	return webp.Encode(w, img, &webp.Options{
		Lossless: false,
		Quality:  float32(qualityPercent(quality, defaultWebPQuality)),
	})
}

func init() {
	mustRegister(webpCodec{})
}
