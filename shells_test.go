package neighgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neighgo/cluster"
	"github.com/hupe1980/neighgo/structure"
)

// displacedSupercell returns a 2x2x2 simple cubic supercell with spacing 2
// whose first atom is nudged along x. The nudge splits the first atom's
// neighbor distances into 1.989, ~2.00003 and 2.011.
func displacedSupercell(t *testing.T) *structure.Structure {
	t.Helper()

	var positions [][3]float64
	var symbols []string
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 2; k++ {
				positions = append(positions, [3]float64{2 * float64(i), 2 * float64(j), 2 * float64(k)})
				symbols = append(symbols, "Al")
			}
		}
	}
	positions[0][0] += 0.011

	st, err := structure.New(positions, cubicCell(4), [3]bool{true, true, true}, symbols)
	require.NoError(t, err)

	return st
}

func TestLocalVersusGlobalShells(t *testing.T) {
	// Four atoms along x whose pooled distances are 1, 2, 3 and 4. Local
	// shells rank per row, global shells rank against the pool.
	st, err := structure.New(
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {3, 0, 0}, {5, 0, 0}},
		cubicCell(20),
		[3]bool{true, true, true},
		[]string{"H", "H", "H", "H"},
	)
	require.NoError(t, err)

	n, err := FindNeighbors(st, WithNumNeighbors(2))
	require.NoError(t, err)

	local, err := n.LocalShells()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {1, 2}, {1, 1}, {1, 2}}, local)

	global, err := n.GlobalShells()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 3}, {1, 2}, {2, 2}, {2, 4}}, global)
}

func TestLocalShellsTolerance(t *testing.T) {
	// Distances 1.0 and 1.2 split at two decimals and merge at zero.
	st, err := structure.New(
		[][3]float64{{0, 0, 0}, {1, 0, 0}, {2.2, 0, 0}},
		cubicCell(10),
		[3]bool{true, true, true},
		[]string{"Cu", "Cu", "Cu"},
	)
	require.NoError(t, err)

	n, err := FindNeighbors(st, WithNumNeighbors(2))
	require.NoError(t, err)

	fine, err := n.LocalShells()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, fine[1])

	coarse, err := n.LocalShells(func(o *ShellOptions) {
		o.Tolerance = 0
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, coarse[1])

	_, err = n.LocalShells(func(o *ShellOptions) {
		o.Tolerance = -1
	})
	require.ErrorIs(t, err, ErrInvalidTolerance)
}

func TestShellsBeforeQuery(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := New(st, WithNumNeighbors(6))
	require.NoError(t, err)

	_, err = n.Shells()
	require.ErrorIs(t, err, ErrNotComputed)

	_, err = n.GlobalShells()
	require.ErrorIs(t, err, ErrNotComputed)

	require.ErrorIs(t, n.ClusterByVecs(), ErrNotComputed)
	require.ErrorIs(t, n.ClusterByDistances(), ErrNotComputed)
}

func TestShellsCached(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	first, err := n.Shells()
	require.NoError(t, err)
	require.NotNil(t, n.shellsCache)

	second, err := n.Shells()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLocalShellsDisplacedAtom(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	shells, err := n.LocalShells()
	require.NoError(t, err)

	// The displaced atom sees three distance groups among its six neighbors.
	assert.Equal(t, []int{1, 2, 2, 2, 2, 3}, shells[0])

	// Its +x partner sees the mirrored split.
	assert.Equal(t, []int{1, 2, 2, 2, 2, 3}, shells[4])
}

func TestClusterByVecsCollapsesJitter(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	require.NoError(t, n.ClusterByVecs())
	require.NotNil(t, n.clusterVecs)

	// Six axis directions, each collapsed to one cluster.
	assert.Len(t, n.clusterVecs.centers, 6)
	for i, row := range n.clusterVecs.labels {
		for j, label := range row {
			assert.GreaterOrEqual(t, label, 0, "row %d slot %d", i, j)
			assert.Less(t, label, 6)
		}
	}

	shells, err := n.LocalShells(func(o *ShellOptions) {
		o.ClusterByVecs = true
	})
	require.NoError(t, err)

	for _, row := range shells {
		assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, row)
	}
}

func TestClusterByDistancesCollapsesJitter(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	shells, err := n.LocalShells(func(o *ShellOptions) {
		o.ClusterByDistances = true
	})
	require.NoError(t, err)

	// The refinement is fitted on demand.
	require.NotNil(t, n.clusterDist)

	for _, row := range shells {
		assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, row)
	}
}

func TestClusterByDistancesUseVecs(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	shells, err := n.GlobalShells(func(o *ShellOptions) {
		o.ClusterByDistances = true
		o.ClusterByVecs = true
	})
	require.NoError(t, err)

	// Both refinements are fitted, the vector one feeding the distance one.
	require.NotNil(t, n.clusterVecs)
	require.NotNil(t, n.clusterDist)

	for _, row := range shells {
		assert.Equal(t, []int{1, 1, 1, 1, 1, 1}, row)
	}
}

func TestClusterByDistancesUseVecsSeparatesShells(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(14))
	require.NoError(t, err)

	// Fit the vector clustering first with a threshold tight enough that
	// every bond direction keeps its own cluster.
	require.NoError(t, n.ClusterByVecs(func(o *ClusterOptions) {
		o.DistanceThreshold = 1.0
	}))
	require.Len(t, n.clusterVecs.centers, 14)

	shells, err := n.GlobalShells(func(o *ShellOptions) {
		o.ClusterByDistances = true
		o.ClusterByVecs = true
	})
	require.NoError(t, err)

	// The center norms split the eight body diagonals from the six cube
	// edges, so the first and second shell survive the refinement.
	expected := append(repeatInt(1, 8), repeatInt(2, 6)...)
	for _, row := range shells {
		assert.Equal(t, expected, row)
	}
}

func TestClusterByVecsNClusters(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	require.NoError(t, n.ClusterByVecs(func(o *ClusterOptions) {
		o.NClusters = 6
	}))
	assert.Len(t, n.clusterVecs.centers, 6)
}

func TestClusterOptionsConflict(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	err = n.ClusterByVecs(func(o *ClusterOptions) {
		o.NClusters = 3
		o.DistanceThreshold = 1.5
	})
	require.ErrorIs(t, err, cluster.ErrBothStopConditions)
}

func TestResetClusters(t *testing.T) {
	st := displacedSupercell(t)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	require.NoError(t, n.ClusterByVecs())
	require.NoError(t, n.ClusterByDistances())
	require.NotNil(t, n.clusterVecs)
	require.NotNil(t, n.clusterDist)

	n.ResetClusters(true, false)
	assert.Nil(t, n.clusterVecs)
	assert.NotNil(t, n.clusterDist)

	n.ResetClusters(false, true)
	assert.Nil(t, n.clusterDist)
}

func TestShellMatrixBCC(t *testing.T) {
	st := bccStructure(t, 2.83, "Cs", "Cl")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	matrices, err := n.ShellMatrix()
	require.NoError(t, err)
	require.Len(t, matrices, 1)

	m := matrices[0]
	rows, cols := m.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)

	assert.Equal(t, 8.0, m.At(0, 1))
	assert.Equal(t, 8.0, m.At(1, 0))
	assert.Equal(t, 0.0, m.At(0, 0))
	assert.Equal(t, 0.0, m.At(1, 1))

	sums, err := m.Dot([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{8, 8}, sums)
}

func TestShellMatrixSecondShell(t *testing.T) {
	st := bccStructure(t, 2.83, "Cs", "Cl")

	n, err := FindNeighbors(st, WithNumNeighbors(14))
	require.NoError(t, err)

	matrices, err := n.ShellMatrix()
	require.NoError(t, err)
	require.Len(t, matrices, 2)

	// The second shell connects each sublattice to its own periodic images.
	second := matrices[1]
	assert.Equal(t, 6.0, second.At(0, 0))
	assert.Equal(t, 6.0, second.At(1, 1))
	assert.Equal(t, 0.0, second.At(0, 1))
	assert.Equal(t, 0.0, second.At(1, 0))
}

func TestShellMatrixChemicalPair(t *testing.T) {
	st := bccStructure(t, 2.83, "Cs", "Cl")

	n, err := FindNeighbors(st, WithNumNeighbors(14))
	require.NoError(t, err)

	mixed, err := n.ShellMatrix(func(o *ShellMatrixOptions) {
		o.ChemicalPair = []string{"Cs", "Cl"}
	})
	require.NoError(t, err)
	require.Len(t, mixed, 2)

	assert.Equal(t, 8.0, mixed[0].At(0, 1))
	assert.Equal(t, 8.0, mixed[0].At(1, 0))
	assert.Equal(t, 0, mixed[1].NNZ())

	same, err := n.ShellMatrix(func(o *ShellMatrixOptions) {
		o.ChemicalPair = []string{"Cs", "Cs"}
	})
	require.NoError(t, err)

	assert.Equal(t, 0, same[0].NNZ())
	assert.Equal(t, 6.0, same[1].At(0, 0))
	assert.Equal(t, 0.0, same[1].At(1, 1))

	_, err = n.ShellMatrix(func(o *ShellMatrixOptions) {
		o.ChemicalPair = []string{"Cs"}
	})
	require.ErrorIs(t, err, ErrInvalidChemicalPair)
}

func TestShellMatrixRequiresAtomTable(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	probe, err := n.Neighborhood([][3]float64{{0.5, 0.5, 0.5}})
	require.NoError(t, err)

	_, err = probe.ShellMatrix()
	require.ErrorIs(t, err, ErrNotAtomTable)
}
