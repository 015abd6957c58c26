package util

import "math/rand"

// RNG struct encapsulates the random number generator and seed.
type RNG struct {
	rand *rand.Rand
	seed int64
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)), // nolint gosec
		seed: seed,
	}
}

// Float64 returns a uniform random value in [0, 1).
func (r *RNG) Float64() float64 {
	return r.rand.Float64()
}

// Vec3 returns a random 3-vector with components uniform in [0, 1).
func (r *RNG) Vec3() [3]float64 {
	return [3]float64{r.rand.Float64(), r.rand.Float64(), r.rand.Float64()}
}

// GenerateRandomPositions generates random positions inside a cubic box with
// the given edge length.
func (r *RNG) GenerateRandomPositions(num int, box float64) [][3]float64 {
	positions := make([][3]float64, num)
	for i := range positions {
		positions[i] = [3]float64{
			r.rand.Float64() * box,
			r.rand.Float64() * box,
			r.rand.Float64() * box,
		}
	}

	return positions
}
