// Package special provides the special functions behind orientational order
// parameters: associated Legendre polynomials, complex spherical harmonics
// and rotations from modified Rodrigues parameters.
package special

import (
	"math"
	"math/cmplx"
)

// legendre evaluates the associated Legendre polynomial P_l^m(x) with the
// Condon-Shortley phase, m >= 0.
func legendre(l, m int, x float64) float64 {
	pmm := 1.0
	if m > 0 {
		somx2 := math.Sqrt((1 - x) * (1 + x))
		fact := 1.0
		for i := 0; i < m; i++ {
			pmm *= -fact * somx2
			fact += 2
		}
	}
	if l == m {
		return pmm
	}

	pmmp1 := x * float64(2*m+1) * pmm
	if l == m+1 {
		return pmmp1
	}

	var pll float64
	for ll := m + 2; ll <= l; ll++ {
		pll = (x*float64(2*ll-1)*pmmp1 - float64(ll+m-1)*pmm) / float64(ll-m)
		pmm = pmmp1
		pmmp1 = pll
	}

	return pll
}

// SphHarm returns the complex spherical harmonic Y_l^m(theta, phi) where
// theta is the azimuthal and phi the polar angle. The Condon-Shortley phase
// is included. Degree and order must satisfy l >= 0 and |m| <= l; callers
// validate them.
func SphHarm(m, l int, theta, phi float64) complex128 {
	if m < 0 {
		y := SphHarm(-m, l, theta, phi)
		if (-m)%2 == 1 {
			return -cmplx.Conj(y)
		}
		return cmplx.Conj(y)
	}

	lg1, _ := math.Lgamma(float64(l - m + 1))
	lg2, _ := math.Lgamma(float64(l + m + 1))
	norm := math.Sqrt(float64(2*l+1) / (4 * math.Pi) * math.Exp(lg1-lg2))

	p := legendre(l, m, math.Cos(phi))

	return complex(norm*p, 0) * cmplx.Exp(complex(0, float64(m)*theta))
}

// RotationFromMRP converts modified Rodrigues parameters into a 3x3 rotation
// matrix. The parameters relate to the unit quaternion (x, y, z, w) via
// p = (x, y, z)/(1+w).
func RotationFromMRP(p [3]float64) [3][3]float64 {
	n2 := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
	denom := 1 + n2

	w := (1 - n2) / denom
	x := 2 * p[0] / denom
	y := 2 * p[1] / denom
	z := 2 * p[2] / denom

	return [3][3]float64{
		{1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w)},
		{2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w)},
		{2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y)},
	}
}

// Rotate applies a rotation matrix to a vector.
func Rotate(r [3][3]float64, v [3]float64) [3]float64 {
	return [3]float64{
		r[0][0]*v[0] + r[0][1]*v[1] + r[0][2]*v[2],
		r[1][0]*v[0] + r[1][1]*v[1] + r[1][2]*v[2],
		r[2][0]*v[0] + r[2][1]*v[1] + r[2][2]*v[2],
	}
}
