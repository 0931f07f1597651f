package phase

import "math"

// Progress is the result of Compute.
type Progress struct {
	Fraction  float64
	Remaining int
}

// Compute maps elapsed seconds within a phase of total seconds to progress.
// Fraction is clamped to [0, 1] and Remaining is rounded up, so the operator
// sees "1s" until the phase is actually over.
func Compute(elapsed float64, total int) (Progress, error) {
	if total <= 0 {
		return Progress{}, configErrorf("total seconds must be positive, got %d", total)
	}
	if elapsed < 0 || math.IsNaN(elapsed) {
		elapsed = 0
	}

	t := float64(total)
	if elapsed >= t {
		return Progress{Fraction: 1.0, Remaining: 0}, nil
	}

	return Progress{
		Fraction:  elapsed / t,
		Remaining: int(math.Ceil(t - elapsed)),
	}, nil
}
