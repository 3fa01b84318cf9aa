package main

import "math/rand"

// Color quantization: reduce a 3-channel pixel stream to an indexed stream
// plus a palette, either losslessly (one entry per distinct color) or via
// iterative k-means clustering over the distinct-color set.

// clusterRounds is the fixed refinement budget for k-means.
const clusterRounds = 6

func rgbKey(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// quantize maps pix (flat RGB) to (indexed stream, flat RGB palette).
// threshold 0 is the lossless path; threshold in (0,255] picks
// k = max(2, 256-threshold/2) clusters. When the image has no more than k
// distinct colors the lossless path is used: clustering would add error
// with no benefit. rng drives centroid sampling and must be non-nil on the
// lossy path.
func quantize(pix []uint8, threshold int, rng *rand.Rand) (indexed, palette []uint8) {
	if threshold <= 0 || len(pix) == 0 {
		return indexLossless(pix)
	}

	k := 256 - threshold/2
	if k < 2 {
		k = 2
	}

	distinct := distinctColors(pix)
	if len(distinct) <= k {
		return indexLossless(pix)
	}

	centroids := make([][3]int, k)
	for i, j := range rng.Perm(len(distinct))[:k] {
		centroids[i] = distinct[j]
	}

	sums := make([][4]int, k) // r, g, b, count
	for round := 0; round < clusterRounds; round++ {
		for i := range sums {
			sums[i] = [4]int{}
		}
		for _, c := range distinct {
			s := &sums[nearestCentroid(centroids, c)]
			s[0] += c[0]
			s[1] += c[1]
			s[2] += c[2]
			s[3]++
		}

		next := make([][3]int, k)
		moved := false
		for i := range next {
			if sums[i][3] == 0 {
				// No colors assigned: centroid stays put.
				next[i] = centroids[i]
				continue
			}
			next[i] = [3]int{
				sums[i][0] / sums[i][3],
				sums[i][1] / sums[i][3],
				sums[i][2] / sums[i][3],
			}
			dr := next[i][0] - centroids[i][0]
			dg := next[i][1] - centroids[i][1]
			db := next[i][2] - centroids[i][2]
			// Movement cutoff is 1.0 Euclidean, compared squared. With
			// integer centroids this means "nothing changed"; the constant
			// is kept as-is because downstream ratios depend on it.
			if dr*dr+dg*dg+db*db >= 1 {
				moved = true
			}
		}
		if !moved {
			break
		}
		centroids = next
	}

	palette = make([]uint8, 0, 3*k)
	for _, c := range centroids {
		palette = append(palette, clampByte(c[0]), clampByte(c[1]), clampByte(c[2]))
	}

	// Map every pixel (not just distinct colors) to its nearest entry.
	// A per-color cache keeps this linear in practice.
	cache := make(map[uint32]uint8, len(distinct))
	indexed = make([]uint8, 0, len(pix)/3)
	for i := 0; i+2 < len(pix); i += 3 {
		key := rgbKey(pix[i], pix[i+1], pix[i+2])
		idx, ok := cache[key]
		if !ok {
			idx = uint8(nearestCentroid(centroids, [3]int{int(pix[i]), int(pix[i+1]), int(pix[i+2])}))
			cache[key] = idx
		}
		indexed = append(indexed, idx)
	}
	return indexed, palette
}

// indexLossless assigns each distinct color the next unused index in
// first-seen order. Index bytes stay in range because callers only reach
// this path with at most 256 distinct colors.
func indexLossless(pix []uint8) (indexed, palette []uint8) {
	seen := make(map[uint32]uint8)
	indexed = make([]uint8, 0, len(pix)/3)
	for i := 0; i+2 < len(pix); i += 3 {
		key := rgbKey(pix[i], pix[i+1], pix[i+2])
		idx, ok := seen[key]
		if !ok {
			idx = uint8(len(seen))
			seen[key] = idx
			palette = append(palette, pix[i], pix[i+1], pix[i+2])
		}
		indexed = append(indexed, idx)
	}
	return indexed, palette
}

// distinctColors returns the set of colors present, in first-seen order.
func distinctColors(pix []uint8) [][3]int {
	seen := make(map[uint32]struct{})
	var out [][3]int
	for i := 0; i+2 < len(pix); i += 3 {
		key := rgbKey(pix[i], pix[i+1], pix[i+2])
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, [3]int{int(pix[i]), int(pix[i+1]), int(pix[i+2])})
	}
	return out
}

// nearestCentroid returns the index of the centroid closest to c by
// squared distance; ties go to the lowest index.
func nearestCentroid(centroids [][3]int, c [3]int) int {
	best := 0
	bestDist := int(^uint(0) >> 1)
	for i, ct := range centroids {
		dr := c[0] - ct[0]
		dg := c[1] - ct[1]
		db := c[2] - ct[2]
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}
