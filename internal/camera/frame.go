package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ProcessFrame crops the frame to the viewport, scales it down to at most
// width pixels wide, and recompresses it as JPEG at the given quality.
// Frames already narrower than width are not upscaled.
func ProcessFrame(frame []byte, viewport Viewport, width, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	src := img.Bounds()
	if !viewport.full() {
		src = cropRect(img.Bounds(), viewport)
	}

	dstW := src.Dx()
	dstH := src.Dy()
	if dstW > width {
		ratio := float64(width) / float64(dstW)
		dstW = width
		dstH = int(float64(dstH) * ratio)
		if dstH < 1 {
			dstH = 1
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(out, out.Bounds(), img, src, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// cropRect maps a normalized viewport onto pixel bounds, clamped so the
// result is never empty.
func cropRect(b image.Rectangle, v Viewport) image.Rectangle {
	w := b.Dx()
	h := b.Dy()
	left := b.Min.X + int(v.X*float64(w))
	top := b.Min.Y + int(v.Y*float64(h))
	right := b.Min.X + int((v.X+v.W)*float64(w))
	bottom := b.Min.Y + int((v.Y+v.H)*float64(h))

	left = clampI(left, b.Min.X, b.Max.X-1)
	top = clampI(top, b.Min.Y, b.Max.Y-1)
	right = clampI(right, left+1, b.Max.X)
	bottom = clampI(bottom, top+1, b.Max.Y)
	return image.Rect(left, top, right, bottom)
}

func clampI(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
