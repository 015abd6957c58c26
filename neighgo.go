package neighgo

import (
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/neighgo/kdtree"
	"github.com/hupe1980/neighgo/metric"
	"github.com/hupe1980/neighgo/structure"
	"github.com/hupe1980/neighgo/util"
)

// SentinelIndex marks neighbor slots beyond the cutoff radius. A sentinel
// slot carries a +Inf distance, a +Inf displacement vector and this index,
// which is guaranteed to be larger than any atom index.
const SentinelIndex = math.MaxInt32

// minEstimatedNeighbors floors the neighbor count derived from a cutoff
// radius so that sparse regions still search a meaningful set.
const minEstimatedNeighbors = 14

// Neighbors computes and holds neighbor information for an atomic structure
// under periodic boundary conditions.
//
// The spatial index is built lazily on the first query and covers the
// structure plus a halo of periodic images. The first query also freezes the
// neighbor slot count and cutoff radius; later queries reuse them, and a
// larger request is answered best-effort with a warning because the halo may
// be too thin for it.
//
// A Neighbors value is not safe for concurrent use.
type Neighbors struct {
	st   *structure.Structure
	opts options
	rng  *util.RNG

	// Frozen by the first query.
	numNeighbors int
	cutoffRadius float64

	tree              *kdtree.Tree
	extendedPositions [][3]float64
	wrappedIndices    []int

	// Canonical filled table. All rows share the same width and are sorted
	// ascending by distance with sentinel entries trailing.
	queryPositions  [][3]float64
	distances       [][]float64
	indices         [][]int
	extendedIndices [][]int

	// Lazy caches, reset whenever the table is rebuilt.
	vecs        [][][3]float64
	shellsCache [][]int
	clusterVecs *clusterModel
	clusterDist *clusterModel
}

// QueryOptions configures a single neighborhood query. Zero values fall back
// to the engine configuration.
type QueryOptions struct {
	// NumNeighbors is the number of neighbor slots per query point.
	NumNeighbors int

	// CutoffRadius bounds the search radius.
	CutoffRadius float64

	// WidthBuffer scales the periodic halo thickness. It only matters for
	// the query that builds the spatial index.
	WidthBuffer float64
}

// New creates a neighbor engine around a copy of st. Nothing is computed
// until the first query.
func New(st *structure.Structure, optFns ...Option) (*Neighbors, error) {
	opts := applyOptions(optFns)

	if err := metric.ValidateOrder(opts.normOrder); err != nil {
		return nil, err
	}

	if opts.numNeighbors < 0 {
		return nil, ErrInvalidNumNeighbors
	}

	if opts.widthBuffer < 0 {
		return nil, ErrInvalidWidthBuffer
	}

	if opts.tolerance < 0 {
		return nil, ErrInvalidTolerance
	}

	return &Neighbors{
		st:   st.Copy(),
		opts: opts,
		rng:  util.NewRNG(opts.randSeed),
	}, nil
}

// FindNeighbors creates a neighbor engine and immediately computes the
// neighbors of every atom in st, excluding each atom itself.
func FindNeighbors(st *structure.Structure, optFns ...Option) (*Neighbors, error) {
	n, err := New(st, optFns...)
	if err != nil {
		return nil, err
	}

	qo := QueryOptions{
		NumNeighbors: n.opts.numNeighbors,
		CutoffRadius: n.opts.cutoffRadius,
		WidthBuffer:  n.opts.widthBuffer,
	}

	if err := n.query(n.st.Positions(), true, qo); err != nil {
		return nil, err
	}

	return n, nil
}

// Neighborhood returns a new engine holding neighbor information for the
// given positions, which need not coincide with atoms. The spatial index and
// the frozen search parameters are shared with the receiver; the table and
// all caches are independent.
func (n *Neighbors) Neighborhood(positions [][3]float64, optFns ...func(*QueryOptions)) (*Neighbors, error) {
	qo := QueryOptions{
		NumNeighbors: n.opts.numNeighbors,
		CutoffRadius: n.opts.cutoffRadius,
		WidthBuffer:  n.opts.widthBuffer,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&qo)
		}
	}

	d := n.derive()
	if err := d.query(positions, false, qo); err != nil {
		return nil, err
	}

	return d, nil
}

// Copy returns an engine sharing the reference structure and the frozen
// spatial index but owning an independent table. Caches are left empty and
// recomputed on demand.
func (n *Neighbors) Copy() *Neighbors {
	c := n.derive()

	c.queryPositions = copyVectors(n.queryPositions)
	c.distances = copyMatrix(n.distances)
	c.indices = copyMatrix(n.indices)
	c.extendedIndices = copyMatrix(n.extendedIndices)

	return c
}

// derive returns an engine sharing the immutable parts of n.
func (n *Neighbors) derive() *Neighbors {
	return &Neighbors{
		st:                n.st,
		opts:              n.opts,
		rng:               n.rng,
		numNeighbors:      n.numNeighbors,
		cutoffRadius:      n.cutoffRadius,
		tree:              n.tree,
		extendedPositions: n.extendedPositions,
		wrappedIndices:    n.wrappedIndices,
	}
}

// Structure returns the engine's copy of the reference structure.
func (n *Neighbors) Structure() *structure.Structure {
	return n.st
}

// NumNeighbors returns the frozen neighbor slot count, zero before any query.
func (n *Neighbors) NumNeighbors() int {
	return n.numNeighbors
}

// CutoffRadius returns the frozen cutoff radius, zero before any query.
func (n *Neighbors) CutoffRadius() float64 {
	return n.cutoffRadius
}

// query runs a nearest-neighbor search for every position and rebuilds the
// canonical table.
func (n *Neighbors) query(positions [][3]float64, excludeSelf bool, qo QueryOptions) error {
	start := time.Now()
	err := n.doQuery(positions, excludeSelf, qo)
	n.opts.metricsCollector.RecordQuery(len(positions), n.numNeighbors, time.Since(start), err)
	n.opts.logger.LogQuery(len(positions), n.numNeighbors, err)

	return err
}

func (n *Neighbors) doQuery(positions [][3]float64, excludeSelf bool, qo QueryOptions) error {
	if qo.NumNeighbors < 0 {
		return ErrInvalidNumNeighbors
	}

	if qo.WidthBuffer < 0 {
		return ErrInvalidWidthBuffer
	}

	if qo.CutoffRadius == 0 {
		qo.CutoffRadius = n.opts.cutoffRadius
	}

	// Self-exclusion searches one extra slot and drops the leading column,
	// which always holds the query atom itself at distance zero.
	searchK := qo.NumNeighbors
	if excludeSelf && searchK > 0 {
		searchK++
	}

	frozeHere := n.numNeighbors == 0

	k, err := n.resolveNumNeighbors(searchK, qo.CutoffRadius)
	if err != nil {
		return err
	}

	if n.tree == nil {
		widthK := qo.NumNeighbors
		if widthK == 0 {
			widthK = k
		}

		if err := n.buildIndex(widthK, qo.CutoffRadius, qo.WidthBuffer); err != nil {
			return err
		}
	}

	if len(n.extendedPositions) < k && math.IsInf(qo.CutoffRadius, 1) {
		return &ErrSearchInfeasible{Requested: k, Available: len(n.extendedPositions)}
	}

	searchPositions := copyVectors(positions)
	if n.opts.wrapPositions {
		searchPositions = n.st.Wrap(searchPositions)
	}

	distances, extIndices, err := n.searchAll(searchPositions, k, qo.CutoffRadius)
	if err != nil {
		return err
	}

	if excludeSelf && qo.NumNeighbors > 0 && frozeHere {
		// The frozen count reflects the slots callers see, not the extra
		// self slot.
		n.numNeighbors--
	}

	if !math.IsInf(qo.CutoffRadius, 1) {
		saturated := 0
		for _, row := range distances {
			if len(row) > 0 && !math.IsInf(row[len(row)-1], 1) {
				saturated++
			}
		}
		if saturated > 0 {
			n.opts.logger.WarnSaturated(saturated)
		}
	}

	indices := n.remapIndices(distances, extIndices)

	startColumn := 0
	if excludeSelf {
		startColumn = 1
	}

	maxColumn := startColumn
	for _, row := range distances {
		finite := 0
		for _, d := range row {
			if !math.IsInf(d, 1) {
				finite++
			}
		}
		if finite > maxColumn {
			maxColumn = finite
		}
	}

	n.queryPositions = searchPositions
	n.distances = trimColumns(distances, startColumn, maxColumn)
	n.indices = trimColumns(indices, startColumn, maxColumn)
	n.extendedIndices = trimColumns(extIndices, startColumn, maxColumn)
	n.resetCaches()

	return nil
}

// resolveNumNeighbors determines the slot count for a query and freezes it
// together with the cutoff radius on first use.
func (n *Neighbors) resolveNumNeighbors(numNeighbors int, cutoffRadius float64) (int, error) {
	k := numNeighbors
	if k == 0 {
		switch {
		case n.numNeighbors > 0:
			k = n.numNeighbors
		case math.IsInf(cutoffRadius, 1):
			return 0, ErrNeighborCountUnset
		default:
			var err error
			k, err = n.estimateNumNeighbors(cutoffRadius)
			if err != nil {
				return 0, err
			}
		}
	}

	if n.numNeighbors == 0 {
		n.numNeighbors = k
		n.cutoffRadius = cutoffRadius
	}

	if k > n.numNeighbors {
		n.opts.logger.WarnSearchGrown(k, n.numNeighbors)
	}

	return k, nil
}

// estimateNumNeighbors derives a slot count from the cutoff radius, assuming
// atoms spread homogeneously at the structure's density. The volume of an Lp
// ball of the cutoff radius is scaled by the width buffer and floored at
// minEstimatedNeighbors.
func (n *Neighbors) estimateNumNeighbors(cutoffRadius float64) (int, error) {
	volumePerAtom := n.st.VolumePerAtom()
	if volumePerAtom <= 0 {
		return 0, ErrDegenerateCell
	}

	p := 1.0 / float64(n.opts.normOrder)
	ballFactor := 8 * math.Pow(math.Gamma(1+p), 3) / math.Gamma(1+3*p)

	k := int((1 + n.opts.widthBuffer) * ballFactor * math.Pow(cutoffRadius, 3) / volumePerAtom)
	if k < minEstimatedNeighbors {
		k = minEstimatedNeighbors
	}

	return k, nil
}

// estimateWidth computes the halo thickness required to cover a search for
// numNeighbors neighbors, or for all neighbors within the cutoff radius.
func (n *Neighbors) estimateWidth(numNeighbors int, cutoffRadius, widthBuffer float64) (float64, error) {
	if numNeighbors == 0 && math.IsInf(cutoffRadius, 1) {
		return 0, ErrNeighborCountUnset
	}

	if !n.st.AnyPBC() {
		return 0, nil
	}

	if !math.IsInf(cutoffRadius, 1) {
		return cutoffRadius, nil
	}

	pbc := n.st.PBC()
	nPeriodic := 0
	for _, periodic := range pbc {
		if periodic {
			nPeriodic++
		}
	}

	// Estimate the linear extent a homogeneous gas would need to hold the
	// requested neighbors, from the volume of the periodic directions.
	p := 1.0 / float64(n.opts.normOrder)
	prefactor := math.Pow(2, float64(nPeriodic)) * math.Pow(math.Gamma(1+p), 2) / math.Gamma(1+float64(nPeriodic)*p)

	cell := n.st.Cell()
	width := 1.0
	for i := range cell {
		if pbc[i] {
			width *= metric.Norm(cell[i], n.opts.normOrder)
		}
	}

	width *= prefactor * float64(max(numNeighbors, 8)) / float64(n.st.Len())

	return widthBuffer * math.Pow(width, 1/float64(nPeriodic)), nil
}

// buildIndex extends the structure by its periodic halo and builds the
// spatial index over the result.
func (n *Neighbors) buildIndex(numNeighbors int, cutoffRadius, widthBuffer float64) error {
	width, err := n.estimateWidth(numNeighbors, cutoffRadius, widthBuffer)
	if err != nil {
		return err
	}

	extended, wrapped, err := n.st.Extend(width)
	if err != nil {
		return err
	}

	tree, err := kdtree.New(extended, func(o *kdtree.Options) {
		o.NormOrder = n.opts.normOrder
	})
	if err != nil {
		return err
	}

	n.tree = tree
	n.extendedPositions = extended
	n.wrappedIndices = wrapped

	return nil
}

// searchAll queries the spatial index for every position, splitting the rows
// across the available cores.
func (n *Neighbors) searchAll(positions [][3]float64, k int, cutoffRadius float64) ([][]float64, [][]int, error) {
	distances := make([][]float64, len(positions))
	indices := make([][]int, len(positions))

	workers := min(runtime.GOMAXPROCS(0), len(positions))
	if workers < 1 {
		workers = 1
	}

	g := new(errgroup.Group)

	chunk := (len(positions) + workers - 1) / workers
	for lo := 0; lo < len(positions); lo += chunk {
		lo := lo
		hi := min(lo+chunk, len(positions))

		g.Go(func() error {
			for i := lo; i < hi; i++ {
				distances[i], indices[i] = n.tree.Query(positions[i], k, cutoffRadius)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return distances, indices, nil
}

// remapIndices translates extended-array indices back to the structure's
// atom indices, replacing out-of-cutoff slots with SentinelIndex.
func (n *Neighbors) remapIndices(distances [][]float64, extIndices [][]int) [][]int {
	indices := make([][]int, len(extIndices))
	for i, row := range extIndices {
		indices[i] = make([]int, len(row))
		for j, extIdx := range row {
			if math.IsInf(distances[i][j], 1) {
				indices[i][j] = SentinelIndex
			} else {
				indices[i][j] = n.wrappedIndices[extIdx]
			}
		}
	}

	return indices
}

func (n *Neighbors) resetCaches() {
	n.vecs = nil
	n.shellsCache = nil
	n.clusterVecs = nil
	n.clusterDist = nil
}

// checkComputed returns ErrNotComputed until a query has filled the table.
func (n *Neighbors) checkComputed() error {
	if n.distances == nil {
		return ErrNotComputed
	}
	return nil
}

// checkAtomTable guards operations that walk atom-to-atom bonds, which only
// make sense when table rows coincide with the structure's atoms.
func (n *Neighbors) checkAtomTable() error {
	if err := n.checkComputed(); err != nil {
		return err
	}
	if len(n.distances) != n.st.Len() {
		return ErrNotAtomTable
	}
	return nil
}

func trimColumns[T any](rows [][]T, start, end int) [][]T {
	out := make([][]T, len(rows))
	for i, row := range rows {
		lo := min(start, len(row))
		hi := min(end, len(row))
		if hi < lo {
			hi = lo
		}
		out[i] = row[lo:hi]
	}

	return out
}

func copyVectors(vectors [][3]float64) [][3]float64 {
	out := make([][3]float64, len(vectors))
	copy(out, vectors)
	return out
}

func copyMatrix[T any](rows [][]T) [][]T {
	if rows == nil {
		return nil
	}
	out := make([][]T, len(rows))
	for i, row := range rows {
		out[i] = make([]T, len(row))
		copy(out[i], row)
	}
	return out
}
