package neighgo

import (
	"math"
)

// VacancySymbol marks neighbor slots beyond the cutoff radius in
// ChemicalSymbols output.
const VacancySymbol = "v"

// Positions returns the query positions behind the table rows. When position
// wrapping is enabled they are the wrapped coordinates.
//
// The returned slice aliases internal state. Callers must not modify it.
func (n *Neighbors) Positions() [][3]float64 {
	return n.queryPositions
}

// Distances returns the filled distance matrix, one row per query position.
// Rows are sorted ascending and padded with +Inf beyond the cutoff radius.
//
// The returned slices alias internal state. Callers must not modify them.
func (n *Neighbors) Distances() [][]float64 {
	return n.distances
}

// Indices returns the filled neighbor index matrix aligned with Distances.
// Sentinel slots hold SentinelIndex.
//
// The returned slices alias internal state. Callers must not modify them.
func (n *Neighbors) Indices() [][]int {
	return n.indices
}

// ExtendedIndices returns, for every finite slot, the index of the matched
// periodic image in the extended position array.
//
// The returned slices alias internal state. Callers must not modify them.
func (n *Neighbors) ExtendedIndices() [][]int {
	return n.extendedIndices
}

// Vecs returns displacement vectors pointing from every query position to
// the matched periodic image of its neighbor. Sentinel slots hold +Inf
// components. The result is cached.
//
// The returned slices alias internal state. Callers must not modify them.
func (n *Neighbors) Vecs() [][][3]float64 {
	if n.vecs == nil {
		n.vecs = n.buildVecs()
	}
	return n.vecs
}

func (n *Neighbors) buildVecs() [][][3]float64 {
	inf := math.Inf(1)

	vecs := make([][][3]float64, len(n.distances))
	for i, row := range n.distances {
		vecs[i] = make([][3]float64, len(row))
		for j, d := range row {
			if math.IsInf(d, 1) {
				vecs[i][j] = [3]float64{inf, inf, inf}
				continue
			}

			ext := n.extendedPositions[n.extendedIndices[i][j]]
			pos := n.queryPositions[i]
			vecs[i][j] = [3]float64{ext[0] - pos[0], ext[1] - pos[1], ext[2] - pos[2]}
		}
	}

	return vecs
}

// AtomNumbers returns, for every table slot, the index of the owning row.
func (n *Neighbors) AtomNumbers() [][]int {
	numbers := make([][]int, len(n.distances))
	for i, row := range n.distances {
		numbers[i] = make([]int, len(row))
		for j := range row {
			numbers[i][j] = i
		}
	}

	return numbers
}

// NumbersOfNeighbors returns the count of finite slots in every row.
func (n *Neighbors) NumbersOfNeighbors() []int {
	counts := make([]int, len(n.distances))
	for i, row := range n.distances {
		for _, d := range row {
			if !math.IsInf(d, 1) {
				counts[i]++
			}
		}
	}

	return counts
}

// ChemicalSymbols returns the chemical symbol of every neighbor slot, with
// VacancySymbol marking slots beyond the cutoff radius.
func (n *Neighbors) ChemicalSymbols() [][]string {
	symbols := n.st.Symbols()

	out := make([][]string, len(n.indices))
	for i, row := range n.indices {
		out[i] = make([]string, len(row))
		for j, idx := range row {
			if idx == SentinelIndex {
				out[i][j] = VacancySymbol
			} else {
				out[i][j] = symbols[idx]
			}
		}
	}

	return out
}

// Ragged returns a view of the table holding only the finite prefix of every
// row. Row lengths vary when a finite cutoff radius is set.
func (n *Neighbors) Ragged() *RaggedTable {
	return &RaggedTable{n: n}
}

// Flattened returns a view of the table holding all finite entries in row
// order, with AtomNumbers linking every entry back to its owning row.
func (n *Neighbors) Flattened() *FlatTable {
	return &FlatTable{n: n}
}

// TableView is the common surface of the three table presentations: the
// engine itself for ModeFilled, RaggedTable for ModeRagged and FlatTable for
// ModeFlattened. Callers that receive a mode at run time select a view with
// View and type-switch on the result.
type TableView interface {
	// Mode names the presentation.
	Mode() Mode
}

// View returns the presentation of the table named by mode.
func (n *Neighbors) View(mode Mode) (TableView, error) {
	switch mode {
	case ModeFilled:
		return n, nil
	case ModeRagged:
		return n.Ragged(), nil
	case ModeFlattened:
		return n.Flattened(), nil
	default:
		return nil, &ErrUnknownMode{Mode: mode.String()}
	}
}

// Mode reports the presentation of the canonical table.
func (n *Neighbors) Mode() Mode {
	return ModeFilled
}

// RaggedTable presents per-row finite prefixes of a neighbor table.
//
// The returned rows alias the engine's filled storage. Callers must not
// modify them.
type RaggedTable struct {
	n *Neighbors
}

// Mode reports the presentation of the view.
func (t *RaggedTable) Mode() Mode {
	return ModeRagged
}

// Distances returns per-row neighbor distances.
func (t *RaggedTable) Distances() [][]float64 {
	return contractRows(t.n.distances, t.n.NumbersOfNeighbors())
}

// Indices returns per-row neighbor indices.
func (t *RaggedTable) Indices() [][]int {
	return contractRows(t.n.indices, t.n.NumbersOfNeighbors())
}

// Vecs returns per-row displacement vectors.
func (t *RaggedTable) Vecs() [][][3]float64 {
	return contractRows(t.n.Vecs(), t.n.NumbersOfNeighbors())
}

// AtomNumbers returns, for every kept slot, the index of the owning row.
func (t *RaggedTable) AtomNumbers() [][]int {
	return contractRows(t.n.AtomNumbers(), t.n.NumbersOfNeighbors())
}

// Shells returns per-row shell numbers.
func (t *RaggedTable) Shells() ([][]int, error) {
	shells, err := t.n.Shells()
	if err != nil {
		return nil, err
	}
	return contractRows(shells, t.n.NumbersOfNeighbors()), nil
}

// FlatTable presents all finite entries of a neighbor table as flat arrays.
type FlatTable struct {
	n *Neighbors
}

// Mode reports the presentation of the view.
func (t *FlatTable) Mode() Mode {
	return ModeFlattened
}

// Distances returns all finite neighbor distances in row order.
func (t *FlatTable) Distances() []float64 {
	return flattenRows(t.n.distances, t.n.NumbersOfNeighbors())
}

// Indices returns all finite neighbor indices in row order.
func (t *FlatTable) Indices() []int {
	return flattenRows(t.n.indices, t.n.NumbersOfNeighbors())
}

// Vecs returns all finite displacement vectors in row order.
func (t *FlatTable) Vecs() [][3]float64 {
	return flattenRows(t.n.Vecs(), t.n.NumbersOfNeighbors())
}

// AtomNumbers returns the owning row of every flattened entry.
func (t *FlatTable) AtomNumbers() []int {
	return flattenRows(t.n.AtomNumbers(), t.n.NumbersOfNeighbors())
}

// Shells returns the shell number of every flattened entry.
func (t *FlatTable) Shells() ([]int, error) {
	shells, err := t.n.Shells()
	if err != nil {
		return nil, err
	}
	return flattenRows(shells, t.n.NumbersOfNeighbors()), nil
}

// contractRows limits every row to its count of finite entries. Rows are
// subslices of the input and share its backing arrays.
func contractRows[T any](rows [][]T, counts []int) [][]T {
	out := make([][]T, len(rows))
	for i, row := range rows {
		out[i] = row[:counts[i]]
	}

	return out
}

// flattenRows concatenates the finite prefix of every row.
func flattenRows[T any](rows [][]T, counts []int) []T {
	total := 0
	for _, c := range counts {
		total += c
	}

	out := make([]T, 0, total)
	for i, row := range rows {
		out = append(out, row[:counts[i]]...)
	}

	return out
}
