package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// testJPEG renders a w x h frame whose right half is white.
func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= w/2 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode processed frame: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestProcessFrameResizesKeepingAspect(t *testing.T) {
	frame := testJPEG(t, 800, 600)
	out, err := ProcessFrame(frame, FullFrame(), 400, 75)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 400 || h != 300 {
		t.Fatalf("dims = %dx%d, want 400x300", w, h)
	}
}

func TestProcessFrameDoesNotUpscale(t *testing.T) {
	frame := testJPEG(t, 200, 150)
	out, err := ProcessFrame(frame, FullFrame(), 400, 75)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 200 || h != 150 {
		t.Fatalf("dims = %dx%d, want unchanged 200x150", w, h)
	}
}

func TestProcessFrameCropsViewport(t *testing.T) {
	frame := testJPEG(t, 400, 400)
	// Right half of the source, no downscale needed.
	out, err := ProcessFrame(frame, Viewport{X: 0.5, Y: 0, W: 0.5, H: 1}, 400, 75)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	w, h := decodeDims(t, out)
	if w != 200 || h != 400 {
		t.Fatalf("dims = %dx%d, want 200x400", w, h)
	}
	// The crop is entirely inside the white half.
	img, _ := jpeg.Decode(bytes.NewReader(out))
	r, g, b, _ := img.At(100, 200).RGBA()
	if r < 0xc000 || g < 0xc000 || b < 0xc000 {
		t.Fatalf("crop center not white: %v %v %v", r, g, b)
	}
}

func TestProcessFrameRejectsGarbage(t *testing.T) {
	if _, err := ProcessFrame([]byte("not an image"), FullFrame(), 400, 75); err == nil {
		t.Fatalf("expected decode error")
	}
}
