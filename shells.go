package neighgo

import (
	"math"
	"sort"
	"time"

	"github.com/hupe1980/neighgo/cluster"
	"github.com/hupe1980/neighgo/metric"
	"github.com/hupe1980/neighgo/sparse"
)

// clusterModel caches a fitted shell refinement clustering in table shape.
type clusterModel struct {
	// labels assigns every table slot a cluster, -1 in sentinel slots.
	labels [][]int

	// centers holds the member mean per cluster: 3-vectors for vector
	// clustering, single values for distance clustering.
	centers [][]float64
}

// effectiveDistances maps every labeled slot through value and fills
// sentinel slots with +Inf.
func (m *clusterModel) effectiveDistances(value func([]float64) float64) [][]float64 {
	out := make([][]float64, len(m.labels))
	for i, row := range m.labels {
		out[i] = make([]float64, len(row))
		for j, label := range row {
			if label < 0 {
				out[i][j] = math.Inf(1)
			} else {
				out[i][j] = value(m.centers[label])
			}
		}
	}

	return out
}

// ShellOptions configures shell classification.
type ShellOptions struct {
	// Tolerance is the number of decimals distances are rounded to before
	// they are compared. Defaults to the engine tolerance.
	Tolerance int

	// ClusterByDistances replaces every distance with the center of its
	// distance cluster before rounding, fitting the clustering first if
	// necessary.
	ClusterByDistances bool

	// ClusterByVecs replaces every distance with the norm of its vector
	// cluster center before rounding, fitting the clustering first if
	// necessary. Ignored when ClusterByDistances is set, where it selects
	// the vector-refined distance clustering instead.
	ClusterByVecs bool
}

// ClusterOptions configures the shell refinement clusterings.
type ClusterOptions struct {
	// NClusters fixes the number of clusters. Zero leaves the count to
	// DistanceThreshold.
	NClusters int

	// DistanceThreshold merges clusters closer than this value. NaN derives
	// a default from the table: the smallest neighbor distance for vector
	// clustering, a tenth of it for distance clustering.
	DistanceThreshold float64

	// Linkage and Affinity control how cluster-to-cluster distances are
	// measured during merging.
	Linkage  cluster.Linkage
	Affinity cluster.Affinity

	// UseVecs replaces every distance with the norm of its vector cluster
	// center before clustering, fitting the vector clustering first when
	// necessary. Only ClusterByDistances reads it.
	UseVecs bool
}

func applyClusterOptions(optFns []func(*ClusterOptions)) ClusterOptions {
	opts := ClusterOptions{
		DistanceThreshold: math.NaN(),
		Linkage:           cluster.LinkageComplete,
		Affinity:          cluster.AffinityEuclidean,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	return opts
}

// Shells returns the local shell numbers with default options. The result is
// cached.
func (n *Neighbors) Shells() ([][]int, error) {
	if n.shellsCache == nil {
		shells, err := n.LocalShells()
		if err != nil {
			return nil, err
		}
		n.shellsCache = shells
	}

	return n.shellsCache, nil
}

// LocalShells groups the distances of every row into shells numbered from 1
// outwards, independently per row. Two slots share a shell when their
// distances agree after rounding to the tolerance. Sentinel slots get -1.
func (n *Neighbors) LocalShells(optFns ...func(*ShellOptions)) ([][]int, error) {
	if err := n.checkComputed(); err != nil {
		return nil, err
	}

	opts, err := n.applyShellOptions(optFns)
	if err != nil {
		return nil, err
	}

	distances, err := n.effectiveDistances(opts)
	if err != nil {
		return nil, err
	}

	shells := make([][]int, len(distances))
	for i, row := range distances {
		unique := uniqueRounded(row, opts.Tolerance)

		shells[i] = make([]int, len(row))
		for j, d := range row {
			if math.IsInf(d, 1) {
				shells[i][j] = -1
				continue
			}
			shells[i][j] = sort.SearchFloat64s(unique, roundTo(d, opts.Tolerance)) + 1
		}
	}

	return shells, nil
}

// GlobalShells groups the distances of the whole table into shells numbered
// from 1 outwards. Every slot is assigned the pooled shell value nearest to
// its distance. Sentinel slots get -1.
func (n *Neighbors) GlobalShells(optFns ...func(*ShellOptions)) ([][]int, error) {
	if err := n.checkComputed(); err != nil {
		return nil, err
	}

	opts, err := n.applyShellOptions(optFns)
	if err != nil {
		return nil, err
	}

	distances, err := n.effectiveDistances(opts)
	if err != nil {
		return nil, err
	}

	var pooled []float64
	for _, row := range distances {
		pooled = append(pooled, row...)
	}
	unique := uniqueRounded(pooled, opts.Tolerance)

	shells := make([][]int, len(distances))
	for i, row := range distances {
		shells[i] = make([]int, len(row))
		for j, d := range row {
			if math.IsInf(d, 1) {
				shells[i][j] = -1
				continue
			}
			shells[i][j] = nearestValue(unique, d) + 1
		}
	}

	return shells, nil
}

func (n *Neighbors) applyShellOptions(optFns []func(*ShellOptions)) (ShellOptions, error) {
	opts := ShellOptions{Tolerance: n.opts.tolerance}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	if opts.Tolerance < 0 {
		return opts, ErrInvalidTolerance
	}

	return opts, nil
}

// effectiveDistances returns the filled distance matrix the shell assignment
// works on: raw distances, or values derived from a refinement clustering.
func (n *Neighbors) effectiveDistances(opts ShellOptions) ([][]float64, error) {
	switch {
	case opts.ClusterByDistances:
		if n.clusterDist == nil {
			if err := n.ClusterByDistances(func(o *ClusterOptions) {
				o.UseVecs = opts.ClusterByVecs
			}); err != nil {
				return nil, err
			}
		}
		return n.clusterDist.effectiveDistances(func(center []float64) float64 {
			return center[0]
		}), nil
	case opts.ClusterByVecs:
		if n.clusterVecs == nil {
			if err := n.ClusterByVecs(); err != nil {
				return nil, err
			}
		}
		return n.clusterVecs.effectiveDistances(func(center []float64) float64 {
			return metric.NormSlice(center, n.opts.normOrder)
		}), nil
	default:
		return n.distances, nil
	}
}

// ClusterByVecs fits an agglomerative clustering to all finite displacement
// vectors and stores it for shell refinement. With default options, vectors
// closer than the smallest neighbor distance end up in the same cluster,
// which collapses thermal scatter around equivalent lattice sites.
func (n *Neighbors) ClusterByVecs(optFns ...func(*ClusterOptions)) error {
	start := time.Now()

	model, entries, err := n.fitVecClusters(applyClusterOptions(optFns))

	n.opts.metricsCollector.RecordClustering(entries, time.Since(start), err)
	n.opts.logger.LogClustering("vecs", entries, modelClusters(model), err)

	if err != nil {
		return err
	}

	n.clusterVecs = model

	return nil
}

// ClusterByDistances fits an agglomerative clustering to all finite neighbor
// distances and stores it for shell refinement.
func (n *Neighbors) ClusterByDistances(optFns ...func(*ClusterOptions)) error {
	start := time.Now()

	model, entries, err := n.fitDistClusters(applyClusterOptions(optFns))

	n.opts.metricsCollector.RecordClustering(entries, time.Since(start), err)
	n.opts.logger.LogClustering("distances", entries, modelClusters(model), err)

	if err != nil {
		return err
	}

	n.clusterDist = model

	return nil
}

// ResetClusters discards fitted refinement clusterings so the next shell
// refinement fits fresh ones.
func (n *Neighbors) ResetClusters(vecs, distances bool) {
	if vecs {
		n.clusterVecs = nil
	}
	if distances {
		n.clusterDist = nil
	}
}

func (n *Neighbors) fitVecClusters(opts ClusterOptions) (*clusterModel, int, error) {
	if err := n.checkComputed(); err != nil {
		return nil, 0, err
	}

	counts := n.NumbersOfNeighbors()
	flatVecs := flattenRows(n.Vecs(), counts)

	points := make([][]float64, len(flatVecs))
	for i, v := range flatVecs {
		points[i] = []float64{v[0], v[1], v[2]}
	}

	if opts.NClusters == 0 && math.IsNaN(opts.DistanceThreshold) {
		opts.DistanceThreshold = minFinite(n.distances)
	}

	m, err := cluster.Fit(points, opts.clusterOptions())
	if err != nil {
		return nil, len(points), err
	}

	return &clusterModel{
		labels:  n.gridLabels(m.Labels, counts),
		centers: m.Centers,
	}, len(points), nil
}

func (n *Neighbors) fitDistClusters(opts ClusterOptions) (*clusterModel, int, error) {
	if err := n.checkComputed(); err != nil {
		return nil, 0, err
	}

	counts := n.NumbersOfNeighbors()
	flat := flattenRows(n.distances, counts)

	if opts.NClusters == 0 && math.IsNaN(opts.DistanceThreshold) {
		threshold := math.Inf(1)
		for _, d := range flat {
			if d < threshold {
				threshold = d
			}
		}
		opts.DistanceThreshold = 0.1 * threshold
	}

	if opts.UseVecs {
		if n.clusterVecs == nil {
			if err := n.ClusterByVecs(); err != nil {
				return nil, 0, err
			}
		}

		flatLabels := flattenRows(n.clusterVecs.labels, counts)
		for i := range flat {
			flat[i] = metric.NormSlice(n.clusterVecs.centers[flatLabels[i]], n.opts.normOrder)
		}
	}

	points := make([][]float64, len(flat))
	for i, d := range flat {
		points[i] = []float64{d}
	}

	m, err := cluster.Fit(points, opts.clusterOptions())
	if err != nil {
		return nil, len(points), err
	}

	return &clusterModel{
		labels:  n.gridLabels(m.Labels, counts),
		centers: m.Centers,
	}, len(points), nil
}

func (opts ClusterOptions) clusterOptions() func(*cluster.Options) {
	return func(o *cluster.Options) {
		o.NClusters = opts.NClusters
		o.DistanceThreshold = opts.DistanceThreshold
		o.Linkage = opts.Linkage
		o.Affinity = opts.Affinity
	}
}

func modelClusters(m *clusterModel) int {
	if m == nil {
		return 0
	}
	return len(m.centers)
}

// gridLabels spreads flat per-entry labels back over the table shape,
// filling sentinel slots with -1. Finite entries form the prefix of every
// row, so the flat order is the row order.
func (n *Neighbors) gridLabels(flat []int, counts []int) [][]int {
	labels := make([][]int, len(n.distances))

	pos := 0
	for i, row := range n.distances {
		labels[i] = make([]int, len(row))
		for j := range row {
			if j < counts[i] {
				labels[i][j] = flat[pos]
				pos++
			} else {
				labels[i][j] = -1
			}
		}
	}

	return labels
}

// ShellMatrixOptions configures ShellMatrix.
type ShellMatrixOptions struct {
	// ChemicalPair restricts the count to bonds between the two given
	// chemical symbols, in either direction.
	ChemicalPair []string

	// ClusterByDistances and ClusterByVecs refine the underlying global
	// shells, see GlobalShells.
	ClusterByDistances bool
	ClusterByVecs      bool
}

// ShellMatrix returns one sparse atom-by-atom matrix per global shell. Entry
// (i, j) of matrix s counts the bonds in shell s+1 that connect neighbor i
// to atom j.
func (n *Neighbors) ShellMatrix(optFns ...func(*ShellMatrixOptions)) ([]*sparse.Matrix, error) {
	if err := n.checkAtomTable(); err != nil {
		return nil, err
	}

	var opts ShellMatrixOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	var pairLo, pairHi string
	if opts.ChemicalPair != nil {
		if len(opts.ChemicalPair) != 2 {
			return nil, ErrInvalidChemicalPair
		}
		pairLo, pairHi = opts.ChemicalPair[0], opts.ChemicalPair[1]
		if pairLo > pairHi {
			pairLo, pairHi = pairHi, pairLo
		}
	}

	shells, err := n.GlobalShells(func(o *ShellOptions) {
		o.ClusterByDistances = opts.ClusterByDistances
		o.ClusterByVecs = opts.ClusterByVecs
	})
	if err != nil {
		return nil, err
	}

	shellMax := 0
	for _, row := range shells {
		for _, s := range row {
			if s > shellMax {
				shellMax = s
			}
		}
	}

	symbols := n.st.Symbols()

	rows := make([][]int, shellMax)
	cols := make([][]int, shellMax)
	vals := make([][]float64, shellMax)

	for i, row := range n.indices {
		for j, idx := range row {
			if idx == SentinelIndex {
				continue
			}

			if opts.ChemicalPair != nil {
				lo, hi := symbols[idx], symbols[i]
				if lo > hi {
					lo, hi = hi, lo
				}
				if lo != pairLo || hi != pairHi {
					continue
				}
			}

			s := shells[i][j] - 1
			rows[s] = append(rows[s], idx)
			cols[s] = append(cols[s], i)
			vals[s] = append(vals[s], 1)
		}
	}

	matrices := make([]*sparse.Matrix, shellMax)
	for s := range matrices {
		m, err := sparse.New(n.st.Len(), n.st.Len(), rows[s], cols[s], vals[s])
		if err != nil {
			return nil, err
		}
		matrices[s] = m
	}

	return matrices, nil
}

// roundTo rounds x to the given number of decimals, rounding halves to even
// like the shell tolerance convention expects.
func roundTo(x float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*shift) / shift
}

// uniqueRounded returns the sorted distinct finite values of row after
// rounding to the tolerance.
func uniqueRounded(row []float64, decimals int) []float64 {
	unique := make([]float64, 0, len(row))
	for _, d := range row {
		if math.IsInf(d, 1) {
			continue
		}
		unique = append(unique, roundTo(d, decimals))
	}
	sort.Float64s(unique)

	out := unique[:0]
	for i, v := range unique {
		if i == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}

	return out
}

// nearestValue returns the index of the value in sorted closest to d, taking
// the smaller value on ties.
func nearestValue(sorted []float64, d float64) int {
	best := 0
	bestDiff := math.Inf(1)
	for i, v := range sorted {
		diff := math.Abs(d - v)
		if diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}

	return best
}

// minFinite returns the smallest finite value of the matrix, +Inf if none.
func minFinite(rows [][]float64) float64 {
	m := math.Inf(1)
	for _, row := range rows {
		for _, d := range row {
			if d < m {
				m = d
			}
		}
	}

	return m
}
