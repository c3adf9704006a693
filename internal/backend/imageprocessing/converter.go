package imageprocessing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxPooledSurfaceBytes caps the size of surfaces kept for reuse (4096x4096 RGBA)
const maxPooledSurfaceBytes = 4096 * 4096 * 4

// Blob is encoded image data tagged with its MIME type
type Blob struct {
	Data     []byte
	MimeType string
}

// Size returns the blob length in bytes
func (b *Blob) Size() int64 {
	return int64(len(b.Data))
}

// Converter re-encodes raster images by drawing the decoded source onto a
// surface of identical size and serializing that surface through a Codec.
type Converter struct {
	registry          *CodecRegistry
	svgFallbackWidth  int
	svgFallbackHeight int
	surfaces          sync.Pool
}

type ConverterOption func(*Converter)

// WithRegistry replaces the codec registry, DefaultRegistry otherwise
func WithRegistry(registry *CodecRegistry) ConverterOption {
	return func(c *Converter) {
		c.registry = registry
	}
}

// WithSVGFallbackSize sets the render size for SVG sources without explicit width and height
func WithSVGFallbackSize(width, height int) ConverterOption {
	return func(c *Converter) {
		c.svgFallbackWidth = width
		c.svgFallbackHeight = height
	}
}

func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{registry: DefaultRegistry}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EncodeAs decodes source and re-encodes it as targetFormat at quality in [0,1].
// It fails with *DecodeError when source cannot be decoded and with *EncodeError
// when the target codec is missing, fails, or writes nothing.
func (c *Converter) EncodeAs(ctx context.Context, source []byte, targetFormat string, quality float64) (*Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format := NormalizeFormat(targetFormat)
	codec, ok := c.registry.Lookup(format)
	if !ok {
		slog.Error("Converter: no codec for target format", "target_format", format)
		return nil, &EncodeError{Format: format, Err: ErrUnsupportedFormat}
	}

	slog.Debug("Converter: start",
		"input_size_bytes", len(source),
		"target_format", format,
		"quality", quality)

	img, sourceFormat, err := c.decode(source)
	if err != nil {
		slog.Error("Converter: failed to decode image", "error", err)
		return nil, &DecodeError{Err: err}
	}

	bounds := img.Bounds()
	slog.Debug("Converter: decoded source",
		"source_format", sourceFormat,
		"width", bounds.Dx(),
		"height", bounds.Dy())

	surface := c.acquireSurface(bounds.Dx(), bounds.Dy())
	defer c.releaseSurface(surface)
	draw.Draw(surface, surface.Bounds(), img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := codec.Encode(&buf, surface, quality); err != nil {
		slog.Error("Converter: failed to encode image", "target_format", format, "error", err)
		return nil, &EncodeError{Format: format, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Format: format, Err: ErrEmptyOutput}
	}

	slog.Debug("Converter: conversion complete",
		"output_size_bytes", buf.Len(),
		"output_format", format)

	return &Blob{Data: buf.Bytes(), MimeType: codec.MimeType()}, nil
}

func (c *Converter) decode(source []byte) (image.Image, string, error) {
	if len(source) == 0 {
		return nil, "", ErrEmptyImage
	}

	var (
		img    image.Image
		format string
		err    error
	)
	if isSVGData(source) {
		img, err = c.decodeSVG(source)
		format = "svg"
	} else {
		img, format, err = image.Decode(bytes.NewReader(source))
	}
	if err != nil {
		return nil, "", err
	}
	if img.Bounds().Empty() {
		return nil, "", ErrEmptyImage
	}
	return img, format, nil
}

func (c *Converter) decodeSVG(source []byte) (image.Image, error) {
	width, height, ok := svgSize(source)
	if !ok {
		width, height = c.svgFallbackWidth, c.svgFallbackHeight
		if width <= 0 || height <= 0 {
			return nil, fmt.Errorf("SVG has no explicit size and no fallback size is configured")
		}
	}
	return rasterizeSVG(source, width, height)
}

// acquireSurface returns a surface with bounds (0,0)-(width,height).
// Pixel contents are undefined; callers overwrite every pixel with draw.Src.
func (c *Converter) acquireSurface(width, height int) *image.RGBA {
	need := width * height * 4
	if pooled, ok := c.surfaces.Get().(*image.RGBA); ok && cap(pooled.Pix) >= need {
		pooled.Pix = pooled.Pix[:need]
		pooled.Stride = width * 4
		pooled.Rect = image.Rect(0, 0, width, height)
		return pooled
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func (c *Converter) releaseSurface(surface *image.RGBA) {
	if cap(surface.Pix) > maxPooledSurfaceBytes {
		return
	}
	c.surfaces.Put(surface)
}
