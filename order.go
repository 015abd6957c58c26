package neighgo

import (
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/neighgo/internal/special"
)

// HarmonicOptions configures spherical-harmonic evaluation.
type HarmonicOptions struct {
	// CutoffRadius restricts contributing neighbors to distances strictly
	// below it. Defaults to +Inf, meaning every finite slot contributes.
	CutoffRadius float64

	// Rotation, when set, is applied to every displacement vector before
	// its angles are computed.
	Rotation *[3][3]float64
}

// SphericalHarmonics evaluates the spherical harmonic Y_lm over the
// displacement vectors of every row and returns the per-row mean values.
func (n *Neighbors) SphericalHarmonics(l, m int, optFns ...func(*HarmonicOptions)) ([]complex128, error) {
	start := time.Now()

	values, err := n.sphericalHarmonics(l, m, optFns)

	n.opts.metricsCollector.RecordOrderParameter(l, time.Since(start), err)
	n.opts.logger.LogOrderParameter(l, len(n.distances), err)

	return values, err
}

func (n *Neighbors) sphericalHarmonics(l, m int, optFns []func(*HarmonicOptions)) ([]complex128, error) {
	if l < 0 || m < -l || m > l {
		return nil, ErrInvalidDegree
	}

	if err := n.checkComputed(); err != nil {
		return nil, err
	}

	opts := HarmonicOptions{CutoffRadius: math.Inf(1)}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	theta, phi, err := n.harmonicAngles(opts.CutoffRadius, opts.Rotation)
	if err != nil {
		return nil, err
	}

	return harmonicMeans(l, m, theta, phi), nil
}

// SteinhardtOptions configures SteinhardtParameter.
type SteinhardtOptions struct {
	// CutoffRadius restricts contributing neighbors to distances strictly
	// below it. Defaults to +Inf.
	CutoffRadius float64
}

// SteinhardtParameter computes the bond orientational order parameter Q_l of
// every row from the mean spherical harmonics of its neighbor vectors.
//
// A random rotation from the engine's seeded source is applied to the
// vectors first. Q_l is rotationally invariant, so the result is unchanged
// up to round-off, but high-symmetry orientations lose their degenerate
// angle values. Runs with the same seed produce identical results.
func (n *Neighbors) SteinhardtParameter(l int, optFns ...func(*SteinhardtOptions)) ([]float64, error) {
	start := time.Now()

	values, err := n.steinhardtParameter(l, optFns)

	n.opts.metricsCollector.RecordOrderParameter(l, time.Since(start), err)
	n.opts.logger.LogOrderParameter(l, len(n.distances), err)

	return values, err
}

func (n *Neighbors) steinhardtParameter(l int, optFns []func(*SteinhardtOptions)) ([]float64, error) {
	if l < 0 {
		return nil, ErrInvalidDegree
	}

	if err := n.checkComputed(); err != nil {
		return nil, err
	}

	opts := SteinhardtOptions{CutoffRadius: math.Inf(1)}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	rotation := special.RotationFromMRP(n.rng.Vec3())

	theta, phi, err := n.harmonicAngles(opts.CutoffRadius, &rotation)
	if err != nil {
		return nil, err
	}

	means := make([][]complex128, 2*l+1)

	g := new(errgroup.Group)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for m := -l; m <= l; m++ {
		m := m
		g.Go(func() error {
			means[m+l] = harmonicMeans(l, m, theta, phi)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	values := make([]float64, len(theta))
	for i := range values {
		total := 0.0
		for _, row := range means {
			re, im := real(row[i]), imag(row[i])
			total += re*re + im*im
		}
		values[i] = math.Sqrt(4 * math.Pi / float64(2*l+1) * total)
	}

	return values, nil
}

// harmonicAngles converts every contributing displacement vector into its
// azimuthal angle theta and polar angle phi. A row without a single
// contributing neighbor fails the whole call.
func (n *Neighbors) harmonicAngles(cutoffRadius float64, rotation *[3][3]float64) (theta, phi [][]float64, err error) {
	vecs := n.Vecs()

	theta = make([][]float64, len(vecs))
	phi = make([][]float64, len(vecs))

	for i, row := range vecs {
		for j, v := range row {
			if !(n.distances[i][j] < cutoffRadius) {
				continue
			}

			if rotation != nil {
				v = special.Rotate(*rotation, v)
			}

			theta[i] = append(theta[i], math.Atan2(v[1], v[0]))
			phi[i] = append(phi[i], math.Atan2(math.Hypot(v[0], v[1]), v[2]))
		}

		if len(theta[i]) == 0 {
			return nil, nil, &ErrNoNeighbors{Atom: i}
		}
	}

	return theta, phi, nil
}

// harmonicMeans returns the mean of Y_lm over every row's angles.
func harmonicMeans(l, m int, theta, phi [][]float64) []complex128 {
	out := make([]complex128, len(theta))
	for i := range theta {
		var sum complex128
		for j := range theta[i] {
			sum += special.SphHarm(m, l, theta[i][j], phi[i][j])
		}
		out[i] = sum / complex(float64(len(theta[i])), 0)
	}

	return out
}
