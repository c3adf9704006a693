package imageprocessing

import (
	"math"
	"testing"
)

func TestFormatFromMimeType(t *testing.T) {
	tests := []struct {
		mimeType string
		expected string
	}{
		{"image/jpeg", "jpeg"},
		{"image/jpg", "jpeg"},
		{"image/png", "png"},
		{"IMAGE/PNG", "png"},
		{"image/webp", "webp"},
		{"image/svg+xml", "svg"},
		{"image/x-ms-bmp", "bmp"},
		{"image/bmp", "bmp"},
		{"image/tiff", "tiff"},
		{"image/png; charset=binary", "png"},
		{"png", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			if got := FormatFromMimeType(tt.mimeType); got != tt.expected {
				t.Errorf("FormatFromMimeType(%q) = %q, want %q", tt.mimeType, got, tt.expected)
			}
		})
	}
}

func TestQualityPercent(t *testing.T) {
	tests := []struct {
		name     string
		quality  float64
		expected int
	}{
		{"zero clamps to one", 0, 1},
		{"upload default", UploadQuality, 80},
		{"restore default", RestoreQuality, 90},
		{"max", 1, 100},
		{"below range", -0.1, 75},
		{"above range", 1.5, 75},
		{"nan", math.NaN(), 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualityPercent(tt.quality, 75); got != tt.expected {
				t.Errorf("qualityPercent(%v) = %d, want %d", tt.quality, got, tt.expected)
			}
		})
	}
}

func TestSVGSize(t *testing.T) {
	tests := []struct {
		name   string
		svg    string
		width  int
		height int
		ok     bool
	}{
		{"pixels", `<svg width="120px" height="80px"></svg>`, 120, 80, true},
		{"single quotes", `<svg width='10' height='20'></svg>`, 10, 20, true},
		{"viewBox only", `<svg viewBox="0 0 100 100"></svg>`, 0, 0, false},
		{"stroke width is not width", `<svg stroke-width="3" height="20"></svg>`, 0, 0, false},
		{"not svg", `<html></html>`, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, ok := svgSize([]byte(tt.svg))
			if ok != tt.ok || w != tt.width || h != tt.height {
				t.Errorf("svgSize = (%d, %d, %v), want (%d, %d, %v)", w, h, ok, tt.width, tt.height, tt.ok)
			}
		})
	}
}
