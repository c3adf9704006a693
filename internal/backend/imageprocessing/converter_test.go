package imageprocessing

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func encodeTestImage(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		t.Fatalf("unsupported test format %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode %s test image: %v", format, err)
	}
	return buf.Bytes()
}

func TestEncodeAs_SourceAndTargetFormats(t *testing.T) {
	converter := NewConverter()
	sources := []string{"png", "jpeg", "gif", "bmp"}
	targets := []string{"webp", "png", "jpeg"}

	for _, source := range sources {
		input := encodeTestImage(t, source, createTestImage(40, 30))
		for _, target := range targets {
			t.Run(source+"->"+target, func(t *testing.T) {
				blob, err := converter.EncodeAs(context.Background(), input, target, UploadQuality)
				if err != nil {
					t.Fatalf("EncodeAs failed: %v", err)
				}
				if len(blob.Data) == 0 {
					t.Fatal("expected non-empty output")
				}
				if blob.MimeType != "image/"+target {
					t.Errorf("expected MIME type image/%s, got %s", target, blob.MimeType)
				}

				cfg, format, err := image.DecodeConfig(bytes.NewReader(blob.Data))
				if err != nil {
					t.Fatalf("output is not decodable: %v", err)
				}
				if format != target {
					t.Errorf("expected decoded format %s, got %s", target, format)
				}
				if cfg.Width != 40 || cfg.Height != 30 {
					t.Errorf("expected 40x30 output, got %dx%d", cfg.Width, cfg.Height)
				}
			})
		}
	}
}

func TestEncodeAs_LosslessIgnoresQuality(t *testing.T) {
	converter := NewConverter()
	input := encodeTestImage(t, "png", createTestImage(32, 32))

	reference, err := converter.EncodeAs(context.Background(), input, "png", 0)
	if err != nil {
		t.Fatalf("EncodeAs(quality=0) failed: %v", err)
	}
	for _, quality := range []float64{0.25, 0.5, 0.8, 1} {
		blob, err := converter.EncodeAs(context.Background(), input, "png", quality)
		if err != nil {
			t.Fatalf("EncodeAs(quality=%v) failed: %v", quality, err)
		}
		if !bytes.Equal(blob.Data, reference.Data) {
			t.Errorf("png output differs for quality %v", quality)
		}
	}
}

func TestEncodeAs_MalformedInput(t *testing.T) {
	converter := NewConverter()
	inputs := map[string][]byte{
		"garbage":   []byte("test image data"),
		"empty":     {},
		"truncated": encodeTestImage(t, "png", createTestImage(16, 16))[:20],
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			blob, err := converter.EncodeAs(context.Background(), input, "webp", UploadQuality)
			if err == nil {
				t.Fatal("expected error for malformed input")
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Errorf("expected *DecodeError, got %T: %v", err, err)
			}
			if blob != nil {
				t.Error("expected nil blob on failure")
			}
		})
	}
}

func TestEncodeAs_UnknownTarget(t *testing.T) {
	converter := NewConverter()
	input := encodeTestImage(t, "png", createTestImage(8, 8))

	_, err := converter.EncodeAs(context.Background(), input, "avif", UploadQuality)
	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected *EncodeError, got %v", err)
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEncodeAs_TargetIsNormalized(t *testing.T) {
	converter := NewConverter()
	input := encodeTestImage(t, "png", createTestImage(8, 8))

	blob, err := converter.EncodeAs(context.Background(), input, "JPG", RestoreQuality)
	if err != nil {
		t.Fatalf("EncodeAs failed: %v", err)
	}
	if blob.MimeType != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %s", blob.MimeType)
	}
}

func TestEncodeAs_FailingCodec(t *testing.T) {
	registry := NewCodecRegistry()
	if err := registry.Register(&stubCodec{format: "png", err: errors.New("boom")}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := registry.Register(&stubCodec{format: "gif"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	converter := NewConverter(WithRegistry(registry))
	input := encodeTestImage(t, "png", createTestImage(8, 8))

	t.Run("encoder error", func(t *testing.T) {
		_, err := converter.EncodeAs(context.Background(), input, "png", 0.5)
		var encodeErr *EncodeError
		if !errors.As(err, &encodeErr) {
			t.Fatalf("expected *EncodeError, got %v", err)
		}
	})

	t.Run("empty output", func(t *testing.T) {
		_, err := converter.EncodeAs(context.Background(), input, "gif", 0.5)
		if !errors.Is(err, ErrEmptyOutput) {
			t.Fatalf("expected ErrEmptyOutput, got %v", err)
		}
	})
}

func TestEncodeAs_RestoreRoundTrip(t *testing.T) {
	converter := NewConverter()
	original := encodeTestImage(t, "jpeg", createTestImage(64, 48))

	compressed, err := converter.EncodeAs(context.Background(), original, "webp", UploadQuality)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	restored, err := converter.EncodeAs(context.Background(), compressed.Data, "jpeg", RestoreQuality)
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(restored.Data))
	if err != nil {
		t.Fatalf("restored output is not decodable: %v", err)
	}
	if format != "jpeg" || cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("expected 64x48 jpeg, got %dx%d %s", cfg.Width, cfg.Height, format)
	}
}

func TestEncodeAs_JPEGFlattensTransparency(t *testing.T) {
	converter := NewConverter()
	transparent := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	input := encodeTestImage(t, "png", transparent)

	blob, err := converter.EncodeAs(context.Background(), input, "jpeg", 1)
	if err != nil {
		t.Fatalf("EncodeAs failed: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(blob.Data))
	if err != nil {
		t.Fatalf("failed to decode output: %v", err)
	}
	r, g, b, _ := img.At(4, 4).RGBA()
	if r>>8 < 245 || g>>8 < 245 || b>>8 < 245 {
		t.Errorf("expected transparent pixels to flatten to white, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestEncodeAs_SVGSource(t *testing.T) {
	withSize := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="30" height="20"><rect width="30" height="20" fill="red"/></svg>`)
	withoutSize := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"><rect width="10" height="10" fill="blue"/></svg>`)

	t.Run("explicit size", func(t *testing.T) {
		blob, err := NewConverter().EncodeAs(context.Background(), withSize, "png", 1)
		if err != nil {
			t.Fatalf("EncodeAs failed: %v", err)
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(blob.Data))
		if err != nil {
			t.Fatalf("output is not decodable: %v", err)
		}
		if cfg.Width != 30 || cfg.Height != 20 {
			t.Errorf("expected 30x20, got %dx%d", cfg.Width, cfg.Height)
		}
	})

	t.Run("no size without fallback", func(t *testing.T) {
		_, err := NewConverter().EncodeAs(context.Background(), withoutSize, "png", 1)
		var decodeErr *DecodeError
		if !errors.As(err, &decodeErr) {
			t.Fatalf("expected *DecodeError, got %v", err)
		}
	})

	t.Run("no size with fallback", func(t *testing.T) {
		converter := NewConverter(WithSVGFallbackSize(12, 12))
		blob, err := converter.EncodeAs(context.Background(), withoutSize, "png", 1)
		if err != nil {
			t.Fatalf("EncodeAs failed: %v", err)
		}
		cfg, _, _ := image.DecodeConfig(bytes.NewReader(blob.Data))
		if cfg.Width != 12 || cfg.Height != 12 {
			t.Errorf("expected 12x12, got %dx%d", cfg.Width, cfg.Height)
		}
	})
}

func TestEncodeAs_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewConverter().EncodeAs(ctx, encodeTestImage(t, "png", createTestImage(4, 4)), "png", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestEncodeAs_ReusesSurfaceAcrossSizes(t *testing.T) {
	converter := NewConverter()
	for _, size := range []int{64, 16, 48} {
		input := encodeTestImage(t, "png", createTestImage(size, size))
		blob, err := converter.EncodeAs(context.Background(), input, "png", 1)
		if err != nil {
			t.Fatalf("EncodeAs(%d) failed: %v", size, err)
		}
		img, err := png.Decode(bytes.NewReader(blob.Data))
		if err != nil {
			t.Fatalf("failed to decode output: %v", err)
		}
		if img.Bounds().Dx() != size {
			t.Fatalf("expected width %d, got %d", size, img.Bounds().Dx())
		}
		// bottom-right pixel must come from this source, not a previous surface
		want := createTestImage(size, size).NRGBAAt(size-1, size-1)
		r, g, b, _ := img.At(size-1, size-1).RGBA()
		if uint8(r>>8) != want.R || uint8(g>>8) != want.G || uint8(b>>8) != want.B {
			t.Errorf("size %d: unexpected corner pixel (%d,%d,%d), want %v", size, r>>8, g>>8, b>>8, want)
		}
	}
}
