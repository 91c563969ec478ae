package burst

import (
	"slices"
	"time"
)

// DefaultWindow groups changes made within one editing session.
const DefaultWindow = time.Hour

// Calculator measures how concentrated a document's changes are in time.
// Burst score = (max changes in any window) / (total changes)
type Calculator struct {
	window time.Duration
}

// NewCalculator creates a burst calculator. Non-positive windows use DefaultWindow.
func NewCalculator(window time.Duration) *Calculator {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Calculator{window: window}
}

// Window returns the window length in use.
func (c *Calculator) Window() time.Duration {
	return c.window
}

// Score calculates the burst score of a set of change timestamps.
// Uses a two-pointer sliding window over a sorted copy of times.
func (c *Calculator) Score(times []time.Time) float64 {
	if len(times) == 0 {
		return 0.0
	}

	if len(times) == 1 {
		// Single change is maximally "bursty"
		return 1.0
	}

	sorted := slices.Clone(times)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })

	maxInWindow := 1
	left := 0
	for right := 0; right < len(sorted); right++ {
		for sorted[right].Sub(sorted[left]) > c.window {
			left++
		}
		if count := right - left + 1; count > maxInWindow {
			maxInWindow = count
		}
	}

	return float64(maxInWindow) / float64(len(sorted))
}
