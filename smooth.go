package main

// Artifact smoother: clustering turns gradients into flat bands. For every
// large single-color region the smoother computes each pixel's BFS
// distance from the region boundary and blends boundary pixels fully
// toward the neighboring band's color, fading to no change at the region
// center. Small regions (text, fine detail) are exempt so sharpness
// survives. Optional box-blur passes feather the result.

// Smooth repairs clustering banding in a flat RGB stream and returns the
// repaired stream. strength 0 disables the gradient (1.0 = nominal);
// blurRadii adds box-blur passes applied in order. Regions smaller than
// max(30, totalPixels/1000) are left untouched.
func Smooth(pix []uint8, w, h int, strength float64, blurRadii []int) []uint8 {
	minRegion := w * h / 1000
	if minRegion < 30 {
		minRegion = 30
	}
	return smoothRegions(pix, w, h, strength, blurRadii, minRegion)
}

func smoothRegions(pix []uint8, w, h int, strength float64, blurRadii []int, minRegion int) []uint8 {
	total := w * h
	if total == 0 || len(pix) != 3*total {
		return pix
	}

	// Step 1: maximal 4-connected regions of identical color.
	regionID := make([]int, total)
	for i := range regionID {
		regionID[i] = -1
	}
	var regionSize []int
	frontier := make([]int, 0, total)
	for start := 0; start < total; start++ {
		if regionID[start] != -1 {
			continue
		}
		id := len(regionSize)
		key := rgbKey(pix[3*start], pix[3*start+1], pix[3*start+2])
		regionID[start] = id
		frontier = append(frontier[:0], start)
		for head := 0; head < len(frontier); head++ {
			idx := frontier[head]
			x, y := idx%w, idx/w
			for _, n := range neighbors4(x, y, w, h, idx) {
				if n == -1 {
					continue
				}
				if regionID[n] == -1 && rgbKey(pix[3*n], pix[3*n+1], pix[3*n+2]) == key {
					regionID[n] = id
					frontier = append(frontier, n)
				}
			}
		}
		regionSize = append(regionSize, len(frontier))
	}

	// Step 2: seed the BFS at region boundaries. A boundary pixel of a
	// large region gets distance 0 and the average color of its
	// differently-colored 4-neighbors as blend target.
	dist := make([]int, total)
	for i := range dist {
		dist[i] = -1
	}
	targetR := make([]float64, total)
	targetG := make([]float64, total)
	targetB := make([]float64, total)

	queue := make([]int, 0, total)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := y*w + x
			if regionSize[regionID[idx]] < minRegion {
				continue
			}
			key := rgbKey(pix[3*idx], pix[3*idx+1], pix[3*idx+2])
			var sr, sg, sb, n int
			for _, d := range neighbors4(x, y, w, h, idx) {
				if d == -1 {
					continue
				}
				if rgbKey(pix[3*d], pix[3*d+1], pix[3*d+2]) != key {
					sr += int(pix[3*d])
					sg += int(pix[3*d+1])
					sb += int(pix[3*d+2])
					n++
				}
			}
			if n > 0 {
				dist[idx] = 0
				targetR[idx] = float64(sr) / float64(n)
				targetG[idx] = float64(sg) / float64(n)
				targetB[idx] = float64(sb) / float64(n)
				queue = append(queue, idx)
			}
		}
	}

	// Step 3: propagate inward in strict FIFO level order, never crossing
	// a region boundary. Each reached pixel inherits its source's target
	// unchanged; revisits are impossible, so distances are shortest.
	for head := 0; head < len(queue); head++ {
		idx := queue[head]
		x, y := idx%w, idx/w
		nd := dist[idx] + 1
		for _, n := range neighbors4(x, y, w, h, idx) {
			if n == -1 || regionID[n] != regionID[idx] || dist[n] != -1 {
				continue
			}
			dist[n] = nd
			targetR[n] = targetR[idx]
			targetG[n] = targetG[idx]
			targetB[n] = targetB[idx]
			queue = append(queue, n)
		}
	}

	// Step 4: per-region gradient span.
	maxDist := make([]int, len(regionSize))
	for idx, d := range dist {
		if d > 0 && d > maxDist[regionID[idx]] {
			maxDist[regionID[idx]] = d
		}
	}

	// Step 5: blend toward the target, full at the boundary, zero at the
	// region center.
	out := make([]uint8, len(pix))
	copy(out, pix)
	for idx := 0; idx < total; idx++ {
		d := dist[idx]
		if d == -1 {
			continue
		}
		maxd := maxDist[regionID[idx]]
		if maxd == 0 {
			maxd = 1
		}
		blend := strength * (1 - float64(d)/float64(maxd))
		if blend > 1 {
			blend = 1
		}
		if blend <= 0 {
			continue
		}
		r := float64(pix[3*idx])
		g := float64(pix[3*idx+1])
		b := float64(pix[3*idx+2])
		out[3*idx] = clampByte(int(r + blend*(targetR[idx]-r)))
		out[3*idx+1] = clampByte(int(g + blend*(targetG[idx]-g)))
		out[3*idx+2] = clampByte(int(b + blend*(targetB[idx]-b)))
	}

	// Step 6: optional box-blur passes. Only gradient-eligible pixels are
	// rewritten, but the window samples everything from the previous pass,
	// which feathers region boundaries naturally.
	cur := out
	for _, radius := range blurRadii {
		if radius <= 0 {
			continue
		}
		next := make([]uint8, len(cur))
		copy(next, cur)
		for idx := 0; idx < total; idx++ {
			if dist[idx] == -1 {
				continue
			}
			x, y := idx%w, idx/w
			var sr, sg, sb, n int
			y0, y1 := y-radius, y+radius
			if y0 < 0 {
				y0 = 0
			}
			if y1 > h-1 {
				y1 = h - 1
			}
			x0, x1 := x-radius, x+radius
			if x0 < 0 {
				x0 = 0
			}
			if x1 > w-1 {
				x1 = w - 1
			}
			for by := y0; by <= y1; by++ {
				base := by * w
				for bx := x0; bx <= x1; bx++ {
					p := 3 * (base + bx)
					sr += int(cur[p])
					sg += int(cur[p+1])
					sb += int(cur[p+2])
					n++
				}
			}
			next[3*idx] = uint8(sr / n)
			next[3*idx+1] = uint8(sg / n)
			next[3*idx+2] = uint8(sb / n)
		}
		cur = next
	}
	return cur
}

// neighbors4 returns the flat indices of the 4-connected neighbors of
// (x, y); out-of-bounds slots are -1.
func neighbors4(x, y, w, h, idx int) [4]int {
	n := [4]int{-1, -1, -1, -1}
	if x > 0 {
		n[0] = idx - 1
	}
	if x < w-1 {
		n[1] = idx + 1
	}
	if y > 0 {
		n[2] = idx - w
	}
	if y < h-1 {
		n[3] = idx + w
	}
	return n
}
