package imageprocessing

import (
	"math"
	"strings"
)

const (
	// UploadQuality is used when compressing uploads to WebP
	UploadQuality = 0.8
	// RestoreQuality is used when converting a stored WebP back to its source format
	RestoreQuality = 0.9
)

// NormalizeFormat lower-cases a format token and folds common aliases
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "jpg":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return format
}

// FormatFromMimeType derives an extension-like format token from a MIME type,
// e.g. "image/svg+xml" -> "svg", "image/x-ms-bmp" -> "bmp".
func FormatFromMimeType(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	_, subtype, found := strings.Cut(mimeType, "/")
	if !found {
		return ""
	}
	subtype = strings.TrimSuffix(subtype, "+xml")
	subtype = strings.TrimPrefix(subtype, "x-")
	if subtype == "ms-bmp" {
		subtype = "bmp"
	}
	return NormalizeFormat(subtype)
}

// qualityPercent maps a [0,1] quality factor to an encoder percentage.
// Values outside the range fall back to def.
func qualityPercent(quality float64, def int) int {
	if math.IsNaN(quality) || quality < 0 || quality > 1 {
		return def
	}
	percent := int(math.Round(quality * 100))
	if percent < 1 {
		percent = 1
	}
	return percent
}
