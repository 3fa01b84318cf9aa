package main

import (
	"bytes"
	"encoding/binary"
	"image"
	"math/rand"
	"time"
)

// Encode turns a flat pixel stream into a complete .bimg envelope.
// pix holds w*h pixels of mode's channel width in row-major order.
// Palette and clustering apply to RGB input only; RGBA is kept raw so the
// alpha channel survives exactly.
func Encode(pix []uint8, w, h int, mode Mode, opt Options) ([]byte, error) {
	if mode != ModeRGB && mode != ModeRGBA {
		return nil, FormatError("unsupported input mode")
	}
	if w < 0 || h < 0 || len(pix) != w*h*mode.channels() {
		return nil, FormatError("pixel buffer size mismatch")
	}

	modeTag := mode
	var flags uint8
	var palette []uint8
	payload := pix

	switch {
	case opt.ClusterThreshold > 0 && mode == ModeRGB:
		rng := opt.Rand
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		payload, palette = quantize(pix, opt.ClusterThreshold, rng)
		modeTag = ModeIndexed
		flags |= flagPalette | flagClustered
	case opt.UsePalette && mode == ModeRGB:
		if idx, pal, ok := buildDirectPalette(pix); ok {
			payload, palette = idx, pal
			modeTag = ModeIndexed
			flags |= flagPalette
		}
	}

	if opt.UseDelta && len(payload) > 0 {
		payload = deltaEncode(payload, modeTag.channels())
		flags |= flagDelta
	}

	return pack(serializeImage(w, h, modeTag, flags, palette, payload), opt.Original)
}

// EncodeImage converts any image.Image to a pixel stream and encodes it.
// Fully opaque images become RGB so the palette paths stay available.
func EncodeImage(img image.Image, opt Options) ([]byte, error) {
	pix, w, h, mode := imagePixels(img)
	return Encode(pix, w, h, mode, opt)
}

// buildDirectPalette attempts the lossless indexed encoding. It gives up
// (ok=false) as soon as a 257th distinct color shows up.
func buildDirectPalette(pix []uint8) (indexed, palette []uint8, ok bool) {
	seen := make(map[uint32]uint8, maxDirectPalette)
	indexed = make([]uint8, 0, len(pix)/3)
	palette = make([]uint8, 0, 3*16)
	for i := 0; i+2 < len(pix); i += 3 {
		key := rgbKey(pix[i], pix[i+1], pix[i+2])
		idx, found := seen[key]
		if !found {
			if len(seen) >= maxDirectPalette {
				return nil, nil, false
			}
			idx = uint8(len(seen))
			seen[key] = idx
			palette = append(palette, pix[i], pix[i+1], pix[i+2])
		}
		indexed = append(indexed, idx)
	}
	return indexed, palette, true
}

// deltaEncode stores the first unit verbatim and every later byte as its
// mod-256 difference from the byte one unit earlier. Byte subtraction
// wraps, which is exactly the encoding.
func deltaEncode(units []uint8, unit int) []uint8 {
	out := make([]uint8, len(units))
	n := unit
	if n > len(units) {
		n = len(units)
	}
	copy(out[:n], units[:n])
	for i := unit; i < len(units); i++ {
		out[i] = units[i] - units[i-unit]
	}
	return out
}

// deltaDecode reverses deltaEncode. Each restored unit depends on the
// previous restored unit, so this is inherently sequential.
func deltaDecode(units []uint8, unit int) []uint8 {
	out := make([]uint8, len(units))
	n := unit
	if n > len(units) {
		n = len(units)
	}
	copy(out[:n], units[:n])
	for i := unit; i < len(units); i++ {
		out[i] = out[i-unit] + units[i]
	}
	return out
}

// serializeImage lays out the pre-compression byte form:
// width(u32le) height(u32le) mode(u8) flags(u8)
// [count(u16le) count*RGB, when the palette flag is set] payload.
func serializeImage(w, h int, modeTag Mode, flags uint8, palette, payload []uint8) []byte {
	size := headerSize + len(payload)
	if flags&flagPalette != 0 {
		size += 2 + len(palette)
	}
	buf := bytes.NewBuffer(make([]byte, 0, size))

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(w))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(h))
	hdr[8] = byte(modeTag)
	hdr[9] = flags
	buf.Write(hdr[:])

	if flags&flagPalette != 0 {
		var cnt [2]byte
		binary.LittleEndian.PutUint16(cnt[:], uint16(len(palette)/3))
		buf.Write(cnt[:])
		buf.Write(palette)
	}
	buf.Write(payload)
	return buf.Bytes()
}

// pack compresses the serialized image and emits the envelope. When the
// untouched original is strictly smaller than the compressed stream it is
// embedded verbatim under tag 0; its own compression is trusted to be
// competitive. This is the only place the size race happens.
func pack(encoded, original []byte) ([]byte, error) {
	comp, err := compressZstd(encoded)
	if err != nil {
		return nil, err
	}
	if original != nil && len(original) < len(comp) {
		out := make([]byte, 0, 1+len(original))
		out = append(out, tagRawImage)
		return append(out, original...), nil
	}
	out := make([]byte, 0, 1+len(comp))
	out = append(out, tagEncoded)
	return append(out, comp...), nil
}
