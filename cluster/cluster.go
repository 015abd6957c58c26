// Package cluster implements agglomerative (bottom-up hierarchical)
// clustering with configurable linkage and a threshold or target-count cut.
// It is used to pool nearly identical neighbor distances and vectors before
// shell assignment.
package cluster

import (
	"errors"
	"math"
	"sort"
)

var (
	// ErrNoPoints is returned when there is nothing to cluster.
	ErrNoPoints = errors.New("no points to cluster")

	// ErrNoStopCondition is returned when neither NClusters nor
	// DistanceThreshold is set.
	ErrNoStopCondition = errors.New("either NClusters or DistanceThreshold must be set")

	// ErrBothStopConditions is returned when NClusters and DistanceThreshold
	// are both set.
	ErrBothStopConditions = errors.New("NClusters and DistanceThreshold are mutually exclusive")

	// ErrInconsistentDimensions is returned when the input points differ in
	// dimension.
	ErrInconsistentDimensions = errors.New("points have inconsistent dimensions")
)

// Linkage selects how the distance between two clusters is derived from
// their members.
type Linkage uint8

const (
	// LinkageComplete uses the largest pairwise member distance.
	LinkageComplete Linkage = iota
	// LinkageSingle uses the smallest pairwise member distance.
	LinkageSingle
	// LinkageAverage uses the size-weighted mean pairwise member distance.
	LinkageAverage
)

// Affinity selects the point-to-point distance.
type Affinity uint8

const (
	// AffinityEuclidean is the L2 distance.
	AffinityEuclidean Affinity = iota
	// AffinityL1 is the Manhattan distance.
	AffinityL1
)

// Options contains parameters for Fit.
type Options struct {
	// NClusters stops merging once this many clusters remain. Zero means
	// unset.
	NClusters int

	// DistanceThreshold is the linkage distance at or above which clusters
	// are not merged. NaN means unset. Exactly one of NClusters and
	// DistanceThreshold must be set.
	DistanceThreshold float64

	// Linkage selects the cluster distance update rule.
	Linkage Linkage

	// Affinity selects the point distance.
	Affinity Affinity
}

// DefaultOptions holds the default parameters for Fit.
var DefaultOptions = Options{
	NClusters:         0,
	DistanceThreshold: math.NaN(),
	Linkage:           LinkageComplete,
	Affinity:          AffinityEuclidean,
}

// Model is a fitted clustering.
type Model struct {
	// Labels assigns every input point a cluster in [0, NClusters), numbered
	// in order of first occurrence.
	Labels []int

	// Centers holds the member mean per cluster.
	Centers [][]float64

	// NClusters is the number of clusters found.
	NClusters int
}

type merge struct {
	a, b   int
	height float64
}

// Fit clusters the given points. All points must share one dimension.
func Fit(points [][]float64, optFns ...func(o *Options)) (*Model, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	hasThreshold := !math.IsNaN(opts.DistanceThreshold)
	switch {
	case opts.NClusters == 0 && !hasThreshold:
		return nil, ErrNoStopCondition
	case opts.NClusters != 0 && hasThreshold:
		return nil, ErrBothStopConditions
	}

	n := len(points)
	if n == 0 {
		return nil, ErrNoPoints
	}

	dim := len(points[0])
	for _, p := range points {
		if len(p) != dim {
			return nil, ErrInconsistentDimensions
		}
	}

	merges := chainMerges(points, opts)

	// Sort merges by height; reducible linkages keep subtree heights
	// monotone so a sorted prefix is always a consistent partition.
	order := make([]int, len(merges))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return merges[order[i]].height < merges[order[j]].height
	})

	uf := newUnionFind(n)
	if opts.NClusters > 0 {
		apply := n - opts.NClusters
		if apply < 0 {
			apply = 0
		}
		if apply > len(merges) {
			apply = len(merges)
		}
		for _, mi := range order[:apply] {
			uf.union(merges[mi].a, merges[mi].b)
		}
	} else {
		for _, mi := range order {
			if merges[mi].height >= opts.DistanceThreshold {
				break
			}
			uf.union(merges[mi].a, merges[mi].b)
		}
	}

	labels := make([]int, n)
	roots := make(map[int]int, n)
	for i := 0; i < n; i++ {
		r := uf.find(i)
		l, ok := roots[r]
		if !ok {
			l = len(roots)
			roots[r] = l
		}
		labels[i] = l
	}

	centers := make([][]float64, len(roots))
	counts := make([]int, len(roots))
	for i := range centers {
		centers[i] = make([]float64, dim)
	}
	for i, l := range labels {
		counts[l]++
		for d := 0; d < dim; d++ {
			centers[l][d] += points[i][d]
		}
	}
	for l := range centers {
		for d := 0; d < dim; d++ {
			centers[l][d] /= float64(counts[l])
		}
	}

	return &Model{
		Labels:    labels,
		Centers:   centers,
		NClusters: len(roots),
	}, nil
}

// chainMerges runs the nearest-neighbor-chain algorithm with Lance-Williams
// updates, producing the n-1 dendrogram merges in O(n^2) time.
func chainMerges(points [][]float64, opts Options) []merge {
	n := len(points)
	if n < 2 {
		return nil
	}

	dist := func(a, b []float64) float64 {
		var s float64
		if opts.Affinity == AffinityL1 {
			for i := range a {
				s += math.Abs(a[i] - b[i])
			}
			return s
		}
		for i := range a {
			d := a[i] - b[i]
			s += d * d
		}
		return math.Sqrt(s)
	}

	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := dist(points[i], points[j])
			d[i][j] = v
			d[j][i] = v
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}

	chain := make([]int, 0, n)
	merges := make([]merge, 0, n-1)

	for len(merges) < n-1 {
		if len(chain) == 0 {
			for i := 0; i < n; i++ {
				if active[i] {
					chain = append(chain, i)
					break
				}
			}
		}

		for {
			a := chain[len(chain)-1]

			b := -1
			best := math.Inf(1)
			for j := 0; j < n; j++ {
				if j == a || !active[j] {
					continue
				}
				if d[a][j] < best {
					best = d[a][j]
					b = j
				}
			}

			if len(chain) >= 2 && b == chain[len(chain)-2] {
				chain = chain[:len(chain)-2]
				merges = append(merges, merge{a: a, b: b, height: best})

				keep, drop := a, b
				if drop < keep {
					keep, drop = drop, keep
				}
				for j := 0; j < n; j++ {
					if !active[j] || j == keep || j == drop {
						continue
					}
					var v float64
					switch opts.Linkage {
					case LinkageSingle:
						v = math.Min(d[keep][j], d[drop][j])
					case LinkageAverage:
						v = (float64(size[keep])*d[keep][j] + float64(size[drop])*d[drop][j]) /
							float64(size[keep]+size[drop])
					default:
						v = math.Max(d[keep][j], d[drop][j])
					}
					d[keep][j] = v
					d[j][keep] = v
				}
				active[drop] = false
				size[keep] += size[drop]

				break
			}

			chain = append(chain, b)
		}
	}

	return merges
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}
