package imageprocessing

import (
	"image"
	"image/color"
	"image/draw"
	"runtime"
	"sync"
)

// flatten composites img over an opaque background color.
// Opaque images are returned unchanged.
func flatten(img image.Image, background color.RGBA) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	src, ok := img.(*image.RGBA)
	if !ok {
		src = image.NewRGBA(img.Bounds())
		draw.Draw(src, src.Bounds(), img, img.Bounds().Min, draw.Src)
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(bounds)
	width := bounds.Dx()

	// Pixels are alpha-premultiplied: out = src + background*(1-alpha)
	forEachRow(bounds.Dy(), func(y int) {
		srcRow := src.Pix[y*src.Stride : y*src.Stride+width*4]
		dstRow := dst.Pix[y*dst.Stride : y*dst.Stride+width*4]
		for x := 0; x < width*4; x += 4 {
			inverse := 255 - uint32(srcRow[x+3])
			dstRow[x] = uint8(uint32(srcRow[x]) + uint32(background.R)*inverse/255)
			dstRow[x+1] = uint8(uint32(srcRow[x+1]) + uint32(background.G)*inverse/255)
			dstRow[x+2] = uint8(uint32(srcRow[x+2]) + uint32(background.B)*inverse/255)
			dstRow[x+3] = 255
		}
	})
	return dst
}

// forEachRow runs fn(y) for y in [0, n) over up to GOMAXPROCS workers,
// striding rows so uneven rows spread across workers.
func forEachRow(n int, fn func(y int)) {
	if n <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(start int) {
			defer wg.Done()
			for y := start; y < n; y += workers {
				fn(y)
			}
		}(w)
	}
	wg.Wait()
}
