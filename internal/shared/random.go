package shared

import (
	"math/rand/v2"
	"time"
)

// NewRand returns a PCG-backed generator. A zero seed draws one from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle permutes s in place using rng.
func Shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// Sample returns min(k, len(s)) elements of s chosen uniformly without replacement,
// in sampling order. s is not modified.
func Sample[T any](rng *rand.Rand, s []T, k int) []T {
	if k <= 0 || len(s) == 0 {
		return []T{}
	}
	if k > len(s) {
		k = len(s)
	}

	idx := make([]int, len(s))
	for i := range idx {
		idx[i] = i
	}
	// partial Fisher-Yates over the index slice
	out := make([]T, k)
	for i := range k {
		j := i + rng.IntN(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = s[idx[i]]
	}
	return out
}
