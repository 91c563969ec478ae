package entropy

import "math"

// Normalized calculates the normalized Shannon entropy of a count distribution.
// Returns a value between 0 and 1:
//   - 0 = all weight on a single bucket (or no buckets at all)
//   - 1 = weight evenly distributed over every bucket
//
// Non-positive counts contribute no weight but still count as buckets.
func Normalized(counts []int) float64 {
	if len(counts) < 2 {
		return 0.0
	}

	total := 0
	for _, c := range counts {
		if c > 0 {
			total += c
		}
	}

	if total == 0 {
		return 0.0
	}

	// -Σ(p_i × log2(p_i))
	h := 0.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(total)
			h -= p * math.Log2(p)
		}
	}

	normalized := h / math.Log2(float64(len(counts)))
	if normalized < 0 {
		return 0.0
	}
	if normalized > 1 {
		return 1.0
	}
	return normalized
}

// OfMap is Normalized over the values of m.
func OfMap[K comparable](m map[K]int) float64 {
	counts := make([]int, 0, len(m))
	for _, c := range m {
		counts = append(counts, c)
	}
	return Normalized(counts)
}
