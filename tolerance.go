package histotune

import (
	"math"
)

// WithinTol reports whether two values agree within an absolute tolerance
func WithinTol(a, b, absTol float64) bool {
	return math.Abs(a-b) <= absTol
}

// CompareAccum compares a device histogram element-wise against the
// golden result and returns the first diverging bin, or nil when every
// bin agrees within the absolute tolerance. Comparison happens in float64
// like the sequential oracle's own arithmetic, whatever the accumulator
// type.
func CompareAccum[A Accum](got, want []A, absTol float64) *Mismatch {
	for i := range want {
		g := float64(got[i])
		w := float64(want[i])
		if !WithinTol(g, w, absTol) {
			return &Mismatch{Index: i, Got: g, Want: w}
		}
	}
	return nil
}
