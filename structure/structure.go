// Package structure provides the immutable atomic-configuration snapshot that
// neighbor searches run against: positions, a 3x3 simulation cell, per-axis
// periodicity flags and chemical symbols.
package structure

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// wrapBuffer is added to fractional coordinates before folding so that
	// atoms sitting exactly on a cell boundary land deterministically.
	wrapBuffer = 1e-12

	// extendSlack widens the halo filter so boundary replicas survive
	// floating point noise.
	extendSlack = 1e-8
)

var (
	// ErrInvalidWidth is returned when a negative halo width is requested.
	ErrInvalidWidth = errors.New("halo width must not be negative")

	// ErrSingularCell is returned when the cell cannot be inverted although
	// at least one axis is periodic.
	ErrSingularCell = errors.New("cell is singular along a periodic axis")
)

// ErrShapeMismatch indicates that per-atom inputs disagree in length.
type ErrShapeMismatch struct {
	Positions int
	Symbols   int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: %d positions, %d symbols", e.Positions, e.Symbols)
}

// Structure is an immutable snapshot of an atomic configuration. The cell is
// row-major: row i holds lattice vector i. Fields are copied on construction
// and never mutated afterwards, so a Structure is safe for concurrent reads.
type Structure struct {
	positions [][3]float64
	cell      [3][3]float64
	pbc       [3]bool
	symbols   []string

	volume  float64
	invCell [3][3]float64
	hasInv  bool
}

// New creates a Structure from per-atom positions and symbols plus the cell
// geometry. It copies all inputs. The cell must be invertible whenever any
// axis is periodic.
func New(positions [][3]float64, cell [3][3]float64, pbc [3]bool, symbols []string) (*Structure, error) {
	if len(symbols) != len(positions) {
		return nil, &ErrShapeMismatch{Positions: len(positions), Symbols: len(symbols)}
	}

	s := &Structure{
		positions: make([][3]float64, len(positions)),
		cell:      cell,
		pbc:       pbc,
		symbols:   make([]string, len(symbols)),
	}
	copy(s.positions, positions)
	copy(s.symbols, symbols)

	c := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.Set(i, j, cell[i][j])
		}
	}

	s.volume = math.Abs(mat.Det(c))

	if s.AnyPBC() {
		var inv mat.Dense
		if err := inv.Inverse(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSingularCell, err)
		}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				s.invCell[i][j] = inv.At(i, j)
			}
		}
		s.hasInv = true
	}

	return s, nil
}

// Len returns the number of atoms.
func (s *Structure) Len() int {
	return len(s.positions)
}

// Positions returns the atom positions.
//
// The returned slice aliases internal state. Callers must not modify it.
func (s *Structure) Positions() [][3]float64 {
	return s.positions
}

// Cell returns the simulation cell, row i holding lattice vector i.
func (s *Structure) Cell() [3][3]float64 {
	return s.cell
}

// PBC returns the per-axis periodicity flags.
func (s *Structure) PBC() [3]bool {
	return s.pbc
}

// AnyPBC reports whether at least one axis is periodic.
func (s *Structure) AnyPBC() bool {
	return s.pbc[0] || s.pbc[1] || s.pbc[2]
}

// Symbols returns the per-atom chemical symbols.
//
// The returned slice aliases internal state. Callers must not modify it.
func (s *Structure) Symbols() []string {
	return s.symbols
}

// Volume returns the cell volume.
func (s *Structure) Volume() float64 {
	return s.volume
}

// VolumePerAtom returns the cell volume divided by the atom count, or zero
// for an empty structure.
func (s *Structure) VolumePerAtom() float64 {
	if len(s.positions) == 0 {
		return 0
	}
	return s.volume / float64(len(s.positions))
}

// Copy returns an independent deep copy.
func (s *Structure) Copy() *Structure {
	c := &Structure{
		positions: make([][3]float64, len(s.positions)),
		cell:      s.cell,
		pbc:       s.pbc,
		symbols:   make([]string, len(s.symbols)),
		volume:    s.volume,
		invCell:   s.invCell,
		hasInv:    s.hasInv,
	}
	copy(c.positions, s.positions)
	copy(c.symbols, s.symbols)

	return c
}

// fractional transforms a Cartesian position into fractional coordinates.
func (s *Structure) fractional(p [3]float64) [3]float64 {
	var f [3]float64
	for j := 0; j < 3; j++ {
		f[j] = p[0]*s.invCell[0][j] + p[1]*s.invCell[1][j] + p[2]*s.invCell[2][j]
	}
	return f
}

// cartesian transforms fractional coordinates into a Cartesian position.
func (s *Structure) cartesian(f [3]float64) [3]float64 {
	var p [3]float64
	for j := 0; j < 3; j++ {
		p[j] = f[0]*s.cell[0][j] + f[1]*s.cell[1][j] + f[2]*s.cell[2][j]
	}
	return p
}

// Wrap folds positions back into the primary cell along periodic axes only.
// Non-periodic Cartesian components pass through unchanged. The input is not
// modified.
func (s *Structure) Wrap(positions [][3]float64) [][3]float64 {
	wrapped := make([][3]float64, len(positions))
	copy(wrapped, positions)

	if !s.AnyPBC() || !s.hasInv {
		return wrapped
	}

	for i, p := range positions {
		f := s.fractional(p)

		// Fold along periodic axes only, as whole lattice vectors so that
		// non-periodic components pass through even in skewed cells.
		var whole [3]float64
		for j := 0; j < 3; j++ {
			if s.pbc[j] {
				whole[j] = math.Floor(f[j] + wrapBuffer)
			}
		}

		shift := s.cartesian(whole)
		for j := 0; j < 3; j++ {
			wrapped[i][j] = p[j] - shift[j]
		}
	}

	return wrapped
}

// Extend materializes periodic images within the given Cartesian width of the
// primary cell. The result starts with the original atoms, followed by the
// replicas; the second return value maps every extended position back to its
// originating atom index.
func (s *Structure) Extend(width float64) ([][3]float64, []int, error) {
	if width < 0 {
		return nil, nil, ErrInvalidWidth
	}

	n := len(s.positions)
	extended := make([][3]float64, n, 2*n)
	copy(extended, s.positions)

	indices := make([]int, n, 2*n)
	for i := range indices {
		indices[i] = i
	}

	if width == 0 || !s.AnyPBC() {
		return extended, indices, nil
	}

	// Fractional margin per axis: the Cartesian width divided by the spacing
	// between opposite cell faces, which is 1/norm of the matching inverse
	// cell column.
	var margin [3]float64
	var reps [3]int
	for i := 0; i < 3; i++ {
		if !s.pbc[i] {
			continue
		}
		colNorm := math.Sqrt(s.invCell[0][i]*s.invCell[0][i] +
			s.invCell[1][i]*s.invCell[1][i] +
			s.invCell[2][i]*s.invCell[2][i])
		margin[i] = width * colNorm
		reps[i] = int(math.Ceil(margin[i]))
	}

	for a := -reps[0]; a <= reps[0]; a++ {
		for b := -reps[1]; b <= reps[1]; b++ {
			for c := -reps[2]; c <= reps[2]; c++ {
				if a == 0 && b == 0 && c == 0 {
					continue
				}
				offset := s.cartesian([3]float64{float64(a), float64(b), float64(c)})
				for i, p := range s.positions {
					cand := [3]float64{p[0] + offset[0], p[1] + offset[1], p[2] + offset[2]}
					f := s.fractional(cand)
					keep := true
					for j := 0; j < 3; j++ {
						if !s.pbc[j] {
							continue
						}
						if f[j] < -margin[j]-extendSlack || f[j] > 1+margin[j]+extendSlack {
							keep = false
							break
						}
					}
					if keep {
						extended = append(extended, cand)
						indices = append(indices, i)
					}
				}
			}
		}
	}

	return extended, indices, nil
}
