package main

import (
	"encoding/binary"
	"fmt"
)

// containerKind classifies the outermost layer of an input file. The
// closed set of recognized variants replaces cascading trial-and-error
// parsing: one sniff, then one dispatch.
type containerKind int

const (
	containerRawImage containerKind = iota // PNG signature, pass through
	containerEnvelope                      // current tagged envelope
	containerLegacyArchive                 // old tar bundle
	containerLegacyRecord                  // old loose JSON record
)

// sniff determines which generation of the format data belongs to.
// The PNG-signature and tagged-envelope checks are cheap and authoritative
// and always run before any legacy recovery.
func sniff(data []byte) (containerKind, error) {
	if len(data) == 0 {
		return 0, FormatError("empty input")
	}
	switch data[0] {
	case pngMagic:
		return containerRawImage, nil
	case tagRawImage, tagEncoded:
		return containerEnvelope, nil
	}
	if isTarArchive(data) {
		return containerLegacyArchive, nil
	}
	if looksLikeRecord(data) {
		return containerLegacyRecord, nil
	}
	return 0, FormatError(fmt.Sprintf("unrecognized format (leading byte 0x%02x)", data[0]))
}

// Decode unpacks any recognized .bimg generation. Passthrough inputs come
// back as Result.Raw; everything else decodes to a flat pixel stream.
// Smoothing runs only when requested and the image went through lossy
// clustering.
func Decode(data []byte, opt SmoothOptions) (*Result, error) {
	kind, err := sniff(data)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch kind {
	case containerRawImage:
		return &Result{Raw: data}, nil
	case containerEnvelope:
		if data[0] == tagRawImage {
			return &Result{Raw: data[1:]}, nil
		}
		plain, err := decompressZstd(data[1:])
		if err != nil {
			return nil, err
		}
		res, err = decodeImage(plain)
		if err != nil {
			return nil, err
		}
	case containerLegacyArchive:
		res, err = decodeArchive(data)
		if err != nil {
			return nil, err
		}
		if res.Raw != nil {
			return res, nil
		}
	case containerLegacyRecord:
		res, err = decodeRecord(data)
		if err != nil {
			return nil, err
		}
	}

	if res.Clustered && opt.Enabled && res.Mode == ModeRGB {
		res.Pix = Smooth(res.Pix, res.Width, res.Height, opt.Strength, opt.BlurRadii)
	}
	return res, nil
}

// decodeImage parses serialized (already decompressed) image bytes back
// into a pixel stream: header, optional palette, payload length check,
// delta reversal, palette lookup.
func decodeImage(data []byte) (*Result, error) {
	if len(data) < headerSize {
		return nil, FormatError("truncated header")
	}
	w := int(binary.LittleEndian.Uint32(data[0:4]))
	h := int(binary.LittleEndian.Uint32(data[4:8]))
	modeTag := Mode(data[8])
	flags := data[9]
	rest := data[headerSize:]

	hasDelta := flags&flagDelta != 0
	hasPalette := flags&flagPalette != 0
	clustered := flags&flagClustered != 0

	var palette []uint8
	if hasPalette {
		if len(rest) < 2 {
			return nil, FormatError("truncated palette")
		}
		count := int(binary.LittleEndian.Uint16(rest[0:2]))
		if len(rest) < 2+3*count {
			return nil, FormatError("truncated palette")
		}
		palette = rest[2 : 2+3*count]
		rest = rest[2+3*count:]
	}

	// Unit width: indexed streams carry one byte per pixel regardless of
	// the mode tag; otherwise the tag decides.
	unit := 3
	outMode := ModeRGB
	switch {
	case hasPalette:
		unit = 1
	case modeTag == ModeRGBA:
		unit = 4
		outMode = ModeRGBA
	}

	// Hard integrity check: payloads are never truncated or padded.
	// Compared by division so crafted dimensions cannot wrap the product
	// past the payload length.
	pixels := uint64(w) * uint64(h)
	if uint64(len(rest))%uint64(unit) != 0 || uint64(len(rest))/uint64(unit) != pixels {
		return nil, FormatError("size mismatch")
	}

	units := rest
	if hasDelta {
		units = deltaDecode(units, unit)
	}

	pix := units
	switch {
	case hasPalette:
		paletteLen := len(palette) / 3
		pix = make([]uint8, 0, 3*len(units))
		for _, idx := range units {
			if int(idx) >= paletteLen {
				return nil, FormatError("palette index out of range")
			}
			p := 3 * int(idx)
			pix = append(pix, palette[p], palette[p+1], palette[p+2])
		}
	case !hasDelta:
		// Detach from the caller's buffer; deltaDecode already copies.
		pix = append([]uint8(nil), units...)
	}

	return &Result{
		Width:     w,
		Height:    h,
		Mode:      outMode,
		Pix:       pix,
		Clustered: clustered,
	}, nil
}
