package main

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Legacy format recovery. Two older generations are still readable:
// tar bundles holding a named entry (a source image, serialized image
// bytes, or a record) and loose JSON records with width/height/pixels
// fields. Neither is ever written anymore.

// isTarArchive reports whether data plausibly starts a tar stream.
// POSIX archives carry "ustar" at offset 257; older ones are recognized by
// a header whose checksum verifies.
func isTarArchive(data []byte) bool {
	if len(data) >= 262 && string(data[257:262]) == "ustar" {
		return true
	}
	tr := tar.NewReader(bytes.NewReader(data))
	_, err := tr.Next()
	return err == nil
}

// looksLikeRecord reports whether data could be a loose JSON record.
func looksLikeRecord(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '{'
}

type archiveEntry struct {
	name string
	data []byte
}

// decodeArchive extracts the payload of a legacy tar bundle. Known entry
// names are searched in priority order; an unknown first entry is
// interpreted by its extension.
func decodeArchive(data []byte) (*Result, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var entries []archiveEntry
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, FormatError("unrecognized format")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		body, err := io.ReadAll(tr)
		if err != nil {
			return nil, FormatError("unrecognized format")
		}
		entries = append(entries, archiveEntry{name: hdr.Name, data: body})
	}
	if len(entries) == 0 {
		return nil, FormatError("unrecognized format")
	}

	pick := func(name string) *archiveEntry {
		for i := range entries {
			if entries[i].name == name {
				return &entries[i]
			}
		}
		return nil
	}

	if e := pick("image.png"); e != nil {
		return &Result{Raw: e.data}, nil
	}
	if e := pick("pixels.bin"); e != nil {
		return decodeImage(e.data)
	}
	if e := pick("pixels.dat"); e != nil {
		return decodeRecord(e.data)
	}

	first := entries[0]
	switch {
	case strings.HasSuffix(first.name, ".png"):
		return &Result{Raw: first.data}, nil
	case strings.HasSuffix(first.name, ".bin"):
		return decodeImage(first.data)
	default:
		return decodeRecord(first.data)
	}
}

// legacyRecord is the loose text form: width, height and a pixel array
// that is either nested rows or a flat list, plus an optional mode.
type legacyRecord struct {
	Width  *int            `json:"width"`
	Height *int            `json:"height"`
	Pixels json.RawMessage `json:"pixels"`
	Mode   string          `json:"mode"`
}

// decodeRecord parses a legacy JSON record into a pixel stream. The mode
// comes from the record when present, otherwise from the per-pixel
// channel count.
func decodeRecord(data []byte) (*Result, error) {
	var rec legacyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, FormatError("unrecognized format")
	}
	if rec.Width == nil || rec.Height == nil || len(rec.Pixels) == 0 {
		return nil, FormatError("record missing width, height or pixels")
	}
	w, h := *rec.Width, *rec.Height
	if w < 0 || h < 0 {
		return nil, FormatError("unrecognized format")
	}

	// Nested rows unmarshal as [][][]int and flat lists as [][]int; the
	// two shapes are mutually exclusive under encoding/json.
	var pixels [][]int
	var nested [][][]int
	if err := json.Unmarshal(rec.Pixels, &nested); err == nil && len(nested) == h {
		for _, row := range nested {
			pixels = append(pixels, row...)
		}
	} else if err := json.Unmarshal(rec.Pixels, &pixels); err != nil {
		return nil, FormatError("unrecognized format")
	}

	if len(pixels) != w*h {
		return nil, FormatError("size mismatch")
	}

	mode := ModeRGB
	switch {
	case rec.Mode == "RGBA":
		mode = ModeRGBA
	case rec.Mode == "RGB":
		mode = ModeRGB
	case rec.Mode == "" && len(pixels) > 0 && len(pixels[0]) == 4:
		mode = ModeRGBA
	case rec.Mode != "":
		return nil, FormatError(fmt.Sprintf("unsupported record mode %q", rec.Mode))
	}

	ch := mode.channels()
	pix := make([]uint8, 0, len(pixels)*ch)
	for _, p := range pixels {
		if len(p) != ch {
			return nil, FormatError("unrecognized format")
		}
		for _, v := range p {
			pix = append(pix, clampByte(v))
		}
	}

	return &Result{Width: w, Height: h, Mode: mode, Pix: pix}, nil
}
