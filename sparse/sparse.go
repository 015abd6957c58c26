// Package sparse provides a minimal coordinate-format sparse matrix for
// per-shell neighbor adjacency counts.
package sparse

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrShape is returned when entry slices disagree in length.
	ErrShape = errors.New("row, column and value slices must have equal length")

	// ErrIndexOutOfRange is returned when an entry lies outside the matrix.
	ErrIndexOutOfRange = errors.New("entry index out of range")

	// ErrDimensionMismatch is returned when a vector length does not match
	// the matrix shape.
	ErrDimensionMismatch = errors.New("vector length does not match matrix dimension")
)

// Matrix is an immutable sparse matrix in coordinate format. Duplicate
// entries are summed at construction, matching the usual COO semantics.
type Matrix struct {
	rows, cols int
	rowIdx     []int
	colIdx     []int
	values     []float64
}

// New creates a Matrix of the given shape from the entry triplets.
func New(rows, cols int, rowIdx, colIdx []int, values []float64) (*Matrix, error) {
	if len(rowIdx) != len(colIdx) || len(rowIdx) != len(values) {
		return nil, ErrShape
	}

	type key struct{ r, c int }
	sums := make(map[key]float64, len(values))
	for i := range values {
		r, c := rowIdx[i], colIdx[i]
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return nil, fmt.Errorf("%w: (%d, %d) in %dx%d", ErrIndexOutOfRange, r, c, rows, cols)
		}
		sums[key{r: r, c: c}] += values[i]
	}

	m := &Matrix{
		rows:   rows,
		cols:   cols,
		rowIdx: make([]int, 0, len(sums)),
		colIdx: make([]int, 0, len(sums)),
		values: make([]float64, 0, len(sums)),
	}
	keys := make([]key, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].r == keys[j].r {
			return keys[i].c < keys[j].c
		}
		return keys[i].r < keys[j].r
	})
	for _, k := range keys {
		m.rowIdx = append(m.rowIdx, k.r)
		m.colIdx = append(m.colIdx, k.c)
		m.values = append(m.values, sums[k])
	}

	return m, nil
}

// Dims returns the matrix shape.
func (m *Matrix) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.values)
}

// At returns the entry at (i, j), zero when not stored.
func (m *Matrix) At(i, j int) float64 {
	lo := sort.Search(len(m.rowIdx), func(k int) bool {
		if m.rowIdx[k] == i {
			return m.colIdx[k] >= j
		}
		return m.rowIdx[k] > i
	})
	if lo < len(m.rowIdx) && m.rowIdx[lo] == i && m.colIdx[lo] == j {
		return m.values[lo]
	}
	return 0
}

// Dot computes the matrix-vector product.
func (m *Matrix) Dot(x []float64) ([]float64, error) {
	if len(x) != m.cols {
		return nil, ErrDimensionMismatch
	}

	y := make([]float64, m.rows)
	for k, v := range m.values {
		y[m.rowIdx[k]] += v * x[m.colIdx[k]]
	}

	return y, nil
}

// Dense expands the matrix into row-major dense form.
func (m *Matrix) Dense() [][]float64 {
	d := make([][]float64, m.rows)
	for i := range d {
		d[i] = make([]float64, m.cols)
	}
	for k, v := range m.values {
		d[m.rowIdx[k]][m.colIdx[k]] = v
	}

	return d
}
