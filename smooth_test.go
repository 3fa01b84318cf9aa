package main

import (
	"bytes"
	"testing"
)

func uniformPixels(w, h int, r, g, b uint8) []uint8 {
	pix := make([]uint8, 0, w*h*3)
	for i := 0; i < w*h; i++ {
		pix = append(pix, r, g, b)
	}
	return pix
}

func TestSmooth_UniformUnchanged(t *testing.T) {
	pix := uniformPixels(10, 10, 90, 40, 200)
	for _, strength := range []float64{0, 0.5, 1, 4} {
		got := Smooth(pix, 10, 10, strength, nil)
		if !bytes.Equal(got, pix) {
			t.Fatalf("strength %v: single-region image must come back unchanged", strength)
		}
	}

	// Blur passes must not touch pixels without a defined distance either.
	got := Smooth(pix, 10, 10, 1, []int{1, 2})
	if !bytes.Equal(got, pix) {
		t.Fatalf("blur touched pixels outside any gradient region")
	}
}

func TestSmooth_TwoPixelBoundary(t *testing.T) {
	// A|B: both pixels are boundary pixels (distance 0) with the other's
	// color as target. The region floor is dropped so the gradient itself
	// is under test.
	a := []uint8{255, 0, 0}
	b := []uint8{0, 0, 255}
	pix := append(append([]uint8{}, a...), b...)

	full := smoothRegions(pix, 2, 1, 1.0, nil, 1)
	if !bytes.Equal(full[0:3], b) || !bytes.Equal(full[3:6], a) {
		t.Fatalf("strength 1: pixels must blend fully to each other's color, got % x", full)
	}

	none := smoothRegions(pix, 2, 1, 0.0, nil, 1)
	if !bytes.Equal(none, pix) {
		t.Fatalf("strength 0: pixels must stay unchanged, got % x", none)
	}
}

func TestSmooth_SmallRegionsExempt(t *testing.T) {
	// Through the exported entry point the same 2x1 image is untouched:
	// both regions are far below the max(30, total/1000) floor.
	pix := []uint8{255, 0, 0, 0, 0, 255}
	got := Smooth(pix, 2, 1, 1.0, nil)
	if !bytes.Equal(got, pix) {
		t.Fatalf("regions below the size floor must be exempt, got % x", got)
	}
}

func TestSmooth_GradientFadesInward(t *testing.T) {
	// Two 8-wide vertical bands. Boundary columns blend fully, the outer
	// columns keep their color, and the blend fades monotonically between.
	w, h := 16, 8
	pix := make([]uint8, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < 8 {
				pix = append(pix, 0, 0, 0)
			} else {
				pix = append(pix, 200, 200, 200)
			}
		}
	}

	got := smoothRegions(pix, w, h, 1.0, nil, 1)

	// Column 7 is a distance-0 pixel of the black band; target is the
	// white band's 200.
	if got[3*7] != 200 {
		t.Fatalf("boundary column: got %d want 200", got[3*7])
	}
	// Column 0 is the deepest black pixel: distance = maxDist, blend 0.
	if got[0] != 0 {
		t.Fatalf("deepest column must keep its color, got %d", got[0])
	}
	// Fade is monotone from the boundary inward.
	for x := 1; x <= 7; x++ {
		if got[3*x] < got[3*(x-1)] {
			t.Fatalf("gradient not monotone at column %d: %d then %d", x, got[3*(x-1)], got[3*x])
		}
	}
}

func TestSmooth_BlurAveragesWindow(t *testing.T) {
	// After full blending the 2x1 image is B|A; one radius-1 pass makes
	// both pixels the average of the pair.
	pix := []uint8{255, 0, 0, 0, 0, 255}
	got := smoothRegions(pix, 2, 1, 1.0, []int{1}, 1)
	want := []uint8{127, 0, 127, 127, 0, 127}
	if !bytes.Equal(got, want) {
		t.Fatalf("blur result: got % x want % x", got, want)
	}
}

func TestSmooth_DetailRegionUntouchedNextToBand(t *testing.T) {
	// A large flat field with a single odd pixel: the odd pixel's region
	// is tiny and must never be modified, even though it borders a large
	// region that is being smoothed.
	w, h := 40, 40
	pix := uniformPixels(w, h, 10, 10, 10)
	// Paint the right half differently so the field has a real boundary.
	for y := 0; y < h; y++ {
		for x := 20; x < w; x++ {
			i := 3 * (y*w + x)
			pix[i], pix[i+1], pix[i+2] = 240, 240, 240
		}
	}
	odd := 3 * (5*w + 5)
	pix[odd], pix[odd+1], pix[odd+2] = 0, 255, 0

	got := smoothRegions(pix, w, h, 1.0, []int{1}, 30)
	if got[odd] != 0 || got[odd+1] != 255 || got[odd+2] != 0 {
		t.Fatalf("small detail region was modified: % x", got[odd:odd+3])
	}
}
