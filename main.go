package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, "Encode: bimg <input-image> [threshold 0–255]\nDecode: bimg <input.bimg> [smooth [strength [radius ...]]]\n")
		os.Exit(1)
	}

	inputPath := os.Args[1]
	ext := strings.ToLower(filepath.Ext(inputPath))
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))

	// If input is .bimg → decode to PNG
	if ext == ".bimg" {
		smooth := SmoothOptions{Strength: 1.0}
		args := os.Args[2:]
		if len(args) > 0 {
			if args[0] != "smooth" {
				fmt.Fprintln(os.Stderr, "decode accepts only: smooth [strength [radius ...]]")
				os.Exit(1)
			}
			smooth.Enabled = true
			if len(args) > 1 {
				s, err := strconv.ParseFloat(args[1], 64)
				if err != nil || s < 0 {
					fmt.Fprintln(os.Stderr, "strength must be a number >= 0")
					os.Exit(1)
				}
				smooth.Strength = s
			}
			for _, a := range args[2:] {
				r, err := strconv.Atoi(a)
				if err != nil || r <= 0 {
					fmt.Fprintln(os.Stderr, "blur radii must be positive integers")
					os.Exit(1)
				}
				smooth.BlurRadii = append(smooth.BlurRadii, r)
			}
		}
		if err := decodeBimg(inputPath, base+".png", smooth); err != nil {
			fmt.Fprintln(os.Stderr, "decode error:", err)
			os.Exit(1)
		}
		return
	}

	// Otherwise: encode image → .bimg with default or provided threshold
	threshold := 0
	if len(os.Args) >= 3 {
		t, err := strconv.Atoi(os.Args[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "threshold must be an integer between 0 and 255")
			os.Exit(1)
		}
		if t < 0 || t > 255 {
			fmt.Fprintln(os.Stderr, "threshold must be between 0 and 255")
			os.Exit(1)
		}
		threshold = t
	}

	outPath := base + ".bimg"
	if err := encodeToBimg(inputPath, outPath, threshold); err != nil {
		fmt.Fprintln(os.Stderr, "encode error:", err)
		os.Exit(1)
	}
}

func encodeToBimg(inPath, outPath string, threshold int) error {
	src, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return err
	}

	opt := Options{
		UsePalette:       true,
		UseDelta:         true,
		ClusterThreshold: threshold,
	}
	// An already-compressed source enters the size race as-is.
	if strings.EqualFold(filepath.Ext(inPath), ".png") {
		opt.Original = src
	}

	start := time.Now()
	enc, err := EncodeImage(img, opt)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := os.WriteFile(outPath, enc, 0o644); err != nil {
		return err
	}

	ratio := float64(len(enc)) / float64(len(src))
	fmt.Printf("%s (%s) → %s (%s)\n", inPath, formatSize(int64(len(src))), outPath, formatSize(int64(len(enc))))
	fmt.Printf("threshold=%d, ratio=%.3f, time=%s\n", threshold, ratio, elapsed)
	return nil
}

func decodeBimg(inPath, outPath string, smooth SmoothOptions) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}

	start := time.Now()
	res, err := Decode(data, smooth)
	if err != nil {
		return err
	}

	// Render fully before touching the destination so a failed decode
	// never leaves a truncated file behind.
	out := res.Raw
	if out == nil {
		var buf bytes.Buffer
		if err := png.Encode(&buf, res.Image()); err != nil {
			return err
		}
		out = buf.Bytes()
	}
	elapsed := time.Since(start)

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return err
	}

	ratio := float64(len(out)) / float64(len(data))
	fmt.Printf("%s (%s) → %s (%s)\n", inPath, formatSize(int64(len(data))), outPath, formatSize(int64(len(out))))
	fmt.Printf("ratio=%.3f, time=%s\n", ratio, elapsed)
	return nil
}

func formatSize(size int64) string {
	if size < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}
