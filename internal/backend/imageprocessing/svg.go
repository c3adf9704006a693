package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// isSVGData detects SVG markup in the first 4KB of data
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := len(data)
	if n > 4096 {
		n = 4096
	}
	header := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.Contains(header, []byte("<svg")) ||
		bytes.Contains(header, []byte(`xmlns="http://www.w3.org/2000/svg"`)) ||
		bytes.Contains(header, []byte(`xmlns='http://www.w3.org/2000/svg'`))
}

// svgSize extracts explicit width and height attributes from the root <svg> tag.
// viewBox is not treated as a pixel size.
func svgSize(data []byte) (int, int, bool) {
	n := len(data)
	if n > 8192 {
		n = 8192
	}
	s := strings.ToLower(string(data[:n]))
	start := strings.Index(s, "<svg")
	if start < 0 {
		return 0, 0, false
	}
	tag := s[start:]
	if end := strings.IndexByte(tag, '>'); end >= 0 {
		tag = tag[:end]
	}

	w, wOk := numericAttr(tag, "width")
	h, hOk := numericAttr(tag, "height")
	if !wOk || !hOk {
		return 0, 0, false
	}
	return w, h, true
}

// numericAttr reads the leading integer of a quoted attribute value, e.g. width="120px" -> 120
func numericAttr(tag, attr string) (int, bool) {
	pos := -1
	for _, sep := range []string{" ", "\t", "\n"} {
		if i := strings.Index(tag, sep+attr+"="); i >= 0 {
			pos = i + len(sep) + len(attr) + 1
			break
		}
	}
	if pos < 0 || pos >= len(tag) {
		return 0, false
	}

	quote := tag[pos]
	if quote != '"' && quote != '\'' {
		return 0, false
	}
	value := tag[pos+1:]
	if end := strings.IndexByte(value, quote); end >= 0 {
		value = value[:end]
	}

	num, found := 0, false
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch < '0' || ch > '9' {
			break
		}
		found = true
		num = num*10 + int(ch-'0')
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}

// rasterizeSVG renders SVG markup onto a transparent surface of the given size
func rasterizeSVG(data []byte, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid SVG render size %dx%d", width, height)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}
