package testutil

import "math/rand"

// UniformPositions generates n positions uniformly distributed in a cubic
// box of the given size centred on center, with a fixed seed for
// reproducibility.
func UniformPositions(seed int64, boxsize, center float64, n int) [][3]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][3]float64, n)
	for i := range out {
		for ax := 0; ax < 3; ax++ {
			out[i][ax] = center + (rng.Float64()-0.5)*boxsize
		}
	}
	return out
}

// DC generates a constant-valued slice.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}
