package main

import (
	"image"
	"image/color"

	"github.com/klauspost/compress/zstd"
)

// compressZstd compresses raw at the highest-effort preset. Ratio beats
// speed here: the envelope race against the untouched source only makes
// sense with maximum compression.
func compressZstd(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	out := enc.EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := enc.Close(); err != nil {
		return nil, &CompressionError{Err: err}
	}
	return out, nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, &CompressionError{Err: err}
	}
	return plain, nil
}

// imagePixels flattens any image.Image into a row-major pixel stream.
// Fully opaque images become 3-channel RGB so the palette paths stay
// available; anything with alpha becomes 4-channel RGBA (non-premultiplied).
// For *image.NRGBA we read the backing Pix slice directly instead of going
// through img.At.
func imagePixels(img image.Image) ([]uint8, int, int, Mode) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	mode := ModeRGB
	if !isOpaque(img) {
		mode = ModeRGBA
	}
	ch := mode.channels()
	pix := make([]uint8, 0, w*h*ch)

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < h; y++ {
			row := src.Pix[y*src.Stride : y*src.Stride+4*w]
			for x := 0; x < w; x++ {
				pix = append(pix, row[4*x:4*x+ch]...)
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				if mode == ModeRGBA {
					pix = append(pix, c.R, c.G, c.B, c.A)
				} else {
					pix = append(pix, c.R, c.G, c.B)
				}
			}
		}
	}
	return pix, w, h, mode
}

// isOpaque reports whether every pixel has full alpha.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
