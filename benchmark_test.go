package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"

	"github.com/xfmoulet/qoi"
)

// benchImage builds a synthetic photo-like image: smooth gradients with a
// little noise, which exercises the palette race, clustering and zstd in a
// realistic way without shipping a binary fixture.
func benchImage(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := uint8(rng.Intn(8))
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*255/w) + n,
				G: uint8(y*255/h) + n,
				B: uint8((x + y) * 255 / (w + h)),
				A: 255,
			})
		}
	}
	return img
}

// BenchmarkCodecs races .bimg against PNG and QOI on the same input:
// identical loop shape per codec (encode, then decode), warm-up before
// timing.
func BenchmarkCodecs(b *testing.B) {
	img := benchImage(256, 256)

	b.Run("PNG", func(b *testing.B) {
		var buf bytes.Buffer
		var r bytes.Reader
		for i := 0; i < b.N; i++ {
			buf.Reset()
			if err := png.Encode(&buf, img); err != nil {
				b.Fatalf("png encode failed: %v", err)
			}
			r.Reset(buf.Bytes())
			if _, err := png.Decode(&r); err != nil {
				b.Fatalf("png decode failed: %v", err)
			}
		}
	})

	b.Run("QOI", func(b *testing.B) {
		var buf bytes.Buffer
		var r bytes.Reader
		for i := 0; i < b.N; i++ {
			buf.Reset()
			if err := qoi.Encode(&buf, img); err != nil {
				b.Fatalf("qoi encode failed: %v", err)
			}
			r.Reset(buf.Bytes())
			if _, err := qoi.Decode(&r); err != nil {
				b.Fatalf("qoi decode failed: %v", err)
			}
		}
	})

	b.Run("BIMG", func(b *testing.B) {
		opt := Options{UseDelta: true, ClusterThreshold: 64, Rand: rand.New(rand.NewSource(1))}
		for i := 0; i < b.N; i++ {
			enc, err := EncodeImage(img, opt)
			if err != nil {
				b.Fatalf("encode failed: %v", err)
			}
			if _, err := Decode(enc, SmoothOptions{}); err != nil {
				b.Fatalf("decode failed: %v", err)
			}
		}
	})
}

func BenchmarkSmooth(b *testing.B) {
	img := benchImage(256, 256)
	pix, w, h, _ := imagePixels(img)
	idx, pal := quantize(pix, 200, rand.New(rand.NewSource(1)))
	clustered := make([]uint8, 0, len(pix))
	for _, i := range idx {
		p := 3 * int(i)
		clustered = append(clustered, pal[p], pal[p+1], pal[p+2])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Smooth(clustered, w, h, 1.0, []int{1})
	}
}
