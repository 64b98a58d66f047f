package histotune

import (
	"math/rand"
)

// RandomInt32s generates n deterministic pseudo-random input elements.
// A fixed seed makes benchmark configurations repeatable across runs.
func RandomInt32s(n int, seed int64) []int32 {
	rng := rand.New(rand.NewSource(seed))
	data := make([]int32, n)
	for i := range data {
		data[i] = int32(rng.Uint32() & 0x7fffffff)
	}
	return data
}
