package histotune

import (
	"time"
)

// Golden computes the sequential reference histogram over the full input
// in input order. It is the correctness oracle the device results are
// validated against.
func Golden[E any, A Accum](p Policy[E, A], h int, input []E) []A {
	histo := make([]A, h)
	for _, x := range input {
		idx, v := p.Bin(h, x)
		histo[idx] = p.Combine(histo[idx], v)
	}
	return histo
}

// TimeGolden computes the golden histogram runs times and returns the
// last result together with the mean wall-clock latency per run. It is
// the sequential baseline the device latencies are compared against.
func TimeGolden[E any, A Accum](p Policy[E, A], h int, input []E, runs int) ([]A, time.Duration) {
	if runs < 1 {
		runs = 1
	}
	var histo []A
	start := time.Now()
	for q := 0; q < runs; q++ {
		histo = Golden(p, h, input)
	}
	elapsed := time.Since(start)
	return histo, elapsed / time.Duration(runs)
}
