// B-Image (.bimg) is a lossy/lossless image container format. The encoder
// reduces the color space via clustering, packs pixels with palette indexing
// and delta prediction, compresses the result with zstd and keeps whichever
// of {compressed stream, untouched source image} is smaller. The decoder
// reverses every step and can repair clustering banding with a
// region-growing gradient smoother.

package main

import (
	"errors"
	"image"
	"math/rand"
)

// Envelope tags: one leading byte selects the payload variant.
const (
	tagRawImage = 0 // payload is a complete source image, stored verbatim
	tagEncoded  = 1 // payload is a zstd frame holding serialized image bytes
)

// pngMagic is the first byte of the PNG signature; files starting with it
// are passed through untouched, before any envelope interpretation.
const pngMagic = 0x89

// Mode identifies the channel layout of a pixel stream.
type Mode uint8

const (
	ModeRGB     Mode = 0
	ModeRGBA    Mode = 1
	ModeIndexed Mode = 2
)

// channels returns the per-pixel unit width in bytes.
func (m Mode) channels() int {
	switch m {
	case ModeRGBA:
		return 4
	case ModeIndexed:
		return 1
	default:
		return 3
	}
}

func (m Mode) String() string {
	switch m {
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModeIndexed:
		return "INDEXED"
	default:
		return "UNKNOWN"
	}
}

// Header flag bits.
const (
	flagDelta     = 1 << 0
	flagPalette   = 1 << 1
	flagClustered = 1 << 2
)

// headerSize is width(4) + height(4) + mode(1) + flags(1).
const headerSize = 10

// maxDirectPalette caps the lossless palette attempt; an image needing a
// 257th distinct color is kept as raw RGB.
const maxDirectPalette = 256

// Options controls the encode pipeline.
type Options struct {
	// UsePalette enables the lossless indexed-color attempt for RGB input.
	UsePalette bool
	// UseDelta stores each pixel unit as its mod-256 difference from the
	// previous unit.
	UseDelta bool
	// ClusterThreshold in [0,255] selects lossy clustering; 0 is lossless.
	ClusterThreshold int
	// Original, when set, enters the size race: if it is strictly smaller
	// than the compressed encoding, the envelope embeds it verbatim.
	Original []byte
	// Rand seeds centroid sampling. Nil means a time-seeded generator is
	// created per call; inject a seeded one for reproducible output.
	Rand *rand.Rand
}

// SmoothOptions controls the post-decode gradient smoother. It only
// applies to images that went through lossy clustering.
type SmoothOptions struct {
	Enabled   bool
	Strength  float64 // 1.0 = nominal
	BlurRadii []int   // optional box-blur passes, applied in order
}

// Result is the outcome of decoding a .bimg file. Exactly one of Raw and
// Pix is set: Raw carries a complete source image (passthrough), Pix a
// flat decoded pixel stream.
type Result struct {
	Raw       []byte
	Width     int
	Height    int
	Mode      Mode
	Pix       []uint8
	Clustered bool
}

// Image materializes the decoded pixel stream. It returns nil for
// passthrough results; callers handle Raw themselves.
func (r *Result) Image() image.Image {
	if r.Raw != nil || r.Pix == nil {
		return nil
	}
	if r.Mode == ModeRGBA {
		dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
		copy(dst.Pix, r.Pix)
		return dst
	}
	dst := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for i, j := 0, 0; i+2 < len(r.Pix); i, j = i+3, j+4 {
		dst.Pix[j+0] = r.Pix[i+0]
		dst.Pix[j+1] = r.Pix[i+1]
		dst.Pix[j+2] = r.Pix[i+2]
		dst.Pix[j+3] = 255
	}
	return dst
}

// FormatError reports a malformed or unrecognized .bimg payload.
type FormatError string

func (e FormatError) Error() string { return "bimg: " + string(e) }

// CompressionError reports a failure in the entropy layer.
type CompressionError struct {
	Err error
}

func (e *CompressionError) Error() string { return "bimg: entropy layer: " + e.Err.Error() }

func (e *CompressionError) Unwrap() error { return e.Err }

// IsFormatError reports whether err is a FormatError.
func IsFormatError(err error) bool {
	var fe FormatError
	return errors.As(err, &fe)
}
