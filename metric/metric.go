// Package metric provides Minkowski (Lp) norms and distances for the
// 3-dimensional vectors used throughout neighgo.
package metric

import (
	"errors"
	"math"
)

// ErrInvalidOrder is returned when a norm order does not define a proper
// Minkowski norm.
var ErrInvalidOrder = errors.New("norm order must be a positive integer")

// ValidateOrder checks that p defines a proper Minkowski norm (p >= 1).
func ValidateOrder(p int) error {
	if p < 1 {
		return ErrInvalidOrder
	}
	return nil
}

// Norm calculates the Lp norm of a 3-vector. The order p must be >= 1;
// callers validate it once via ValidateOrder.
func Norm(v [3]float64, p int) float64 {
	switch p {
	case 1:
		return math.Abs(v[0]) + math.Abs(v[1]) + math.Abs(v[2])
	case 2:
		return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	default:
		fp := float64(p)
		s := math.Pow(math.Abs(v[0]), fp) + math.Pow(math.Abs(v[1]), fp) + math.Pow(math.Abs(v[2]), fp)
		return math.Pow(s, 1/fp)
	}
}

// Distance calculates the Lp distance between two 3-vectors.
func Distance(a, b [3]float64, p int) float64 {
	return Norm([3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}, p)
}

// NormSlice calculates the Lp norm of a vector of arbitrary dimension.
func NormSlice(v []float64, p int) float64 {
	switch p {
	case 1:
		var s float64
		for _, x := range v {
			s += math.Abs(x)
		}
		return s
	case 2:
		var s float64
		for _, x := range v {
			s += x * x
		}
		return math.Sqrt(s)
	default:
		fp := float64(p)
		var s float64
		for _, x := range v {
			s += math.Pow(math.Abs(x), fp)
		}
		return math.Pow(s, 1/fp)
	}
}

// DistanceSlice calculates the Lp distance between two float64 slices.
func DistanceSlice(a, b []float64, p int) (float64, error) {
	// Check if the vector sizes match
	if len(a) != len(b) {
		return 0, errors.New("vector sizes do not match")
	}

	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}

	return NormSlice(d, p), nil
}
