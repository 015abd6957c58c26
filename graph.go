package neighgo

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/neighgo/metric"
)

// ClusterAnalysis partitions the given atoms into connected components,
// following neighbor bonds that stay inside the id set. A nil id set means
// all atoms. Components are numbered from 1 in order of discovery; members
// are listed ascending.
func (n *Neighbors) ClusterAnalysis(ids []int) (map[int][]int, error) {
	if err := n.checkAtomTable(); err != nil {
		return nil, err
	}

	if ids == nil {
		ids = make([]int, n.st.Len())
		for i := range ids {
			ids[i] = i
		}
	}

	member := roaring.New()
	for _, id := range ids {
		if id < 0 || id >= n.st.Len() {
			return nil, &ErrAtomOutOfRange{Atom: id, Len: n.st.Len()}
		}
		member.Add(uint32(id))
	}

	component := make([]int, n.st.Len())
	count := 0

	var stack []int
	for _, id := range ids {
		if component[id] != 0 {
			continue
		}

		count++
		component[id] = count

		stack = append(stack[:0], id)
		for len(stack) > 0 {
			atom := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, nbr := range n.indices[atom] {
				if nbr == SentinelIndex {
					continue
				}
				if !member.Contains(uint32(nbr)) || component[nbr] != 0 {
					continue
				}
				component[nbr] = count
				stack = append(stack, nbr)
			}
		}
	}

	clusters := make(map[int][]int, count)
	for atom, c := range component {
		if c == 0 {
			continue
		}
		clusters[c] = append(clusters[c], atom)
	}

	return clusters, nil
}

// BondOptions configures Bonds.
type BondOptions struct {
	// Radius restricts bonds to distances strictly below it. Defaults to
	// +Inf.
	Radius float64

	// MaxShells caps the number of shells kept per element. Zero keeps all.
	MaxShells int

	// Prec is the distance gap that separates two shells. Defaults to 0.1.
	Prec float64
}

// Bonds groups every atom's neighbors into distance shells and buckets each
// shell by chemical element. A new shell starts wherever the gap between
// consecutive sorted distances exceeds Prec. Ids within a shell are sorted
// ascending.
func (n *Neighbors) Bonds(optFns ...func(*BondOptions)) ([]map[string][][]int, error) {
	if err := n.checkAtomTable(); err != nil {
		return nil, err
	}

	opts := BondOptions{Radius: math.Inf(1), Prec: 0.1}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	symbols := n.st.Symbols()

	bonds := make([]map[string][][]int, len(n.distances))
	for i, row := range n.distances {
		var dist []float64
		var ids []int
		for j, d := range row {
			if d < opts.Radius {
				dist = append(dist, d)
				ids = append(ids, n.indices[i][j])
			}
		}

		perElement := make(map[string][][]int)
		for _, shell := range splitByGap(dist, ids, opts.Prec) {
			sort.Ints(shell)

			byElement := make(map[string][]int)
			for _, id := range shell {
				byElement[symbols[id]] = append(byElement[symbols[id]], id)
			}

			for element, list := range byElement {
				if opts.MaxShells > 0 && len(perElement[element]) >= opts.MaxShells {
					continue
				}
				perElement[element] = append(perElement[element], list)
			}
		}

		bonds[i] = perElement
	}

	return bonds, nil
}

// splitByGap splits ids into groups wherever the gap between consecutive
// distances exceeds prec. Distances must be sorted ascending.
func splitByGap(dist []float64, ids []int, prec float64) [][]int {
	if len(ids) == 0 {
		return nil
	}

	var groups [][]int

	start := 0
	for i := 1; i < len(dist); i++ {
		if dist[i]-dist[i-1] > prec {
			groups = append(groups, append([]int(nil), ids[start:i]...))
			start = i
		}
	}

	return append(groups, append([]int(nil), ids[start:]...))
}

// FindNeighborsByVector returns, for every atom, the id of the neighbor
// whose displacement vector is closest to vector, along with the residual
// norm. The atom itself competes with a zero vector, so a near-zero vector
// returns each atom's own id.
func (n *Neighbors) FindNeighborsByVector(vector [3]float64) ([]int, []float64, error) {
	if err := n.checkAtomTable(); err != nil {
		return nil, nil, err
	}

	vecs := n.Vecs()

	ids := make([]int, len(vecs))
	deviations := make([]float64, len(vecs))

	for i, row := range vecs {
		bestID := i
		best := metric.Norm(vector, n.opts.normOrder)

		for j, v := range row {
			if n.indices[i][j] == SentinelIndex {
				continue
			}

			d := metric.Distance(v, vector, n.opts.normOrder)
			if d < best {
				best = d
				bestID = n.indices[i][j]
			}
		}

		ids[i] = bestID
		deviations[i] = best
	}

	return ids, deviations, nil
}
