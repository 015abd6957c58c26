package neighgo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/neighgo/structure"
)

// fccStructure returns a conventional four-atom fcc cell.
func fccStructure(t *testing.T, latticeConstant float64) *structure.Structure {
	t.Helper()

	h := latticeConstant / 2
	st, err := structure.New(
		[][3]float64{
			{0, 0, 0},
			{0, h, h},
			{h, 0, h},
			{h, h, 0},
		},
		cubicCell(latticeConstant),
		[3]bool{true, true, true},
		[]string{"Cu", "Cu", "Cu", "Cu"},
	)
	require.NoError(t, err)

	return st
}

func TestSteinhardtSimpleCubic(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	q0, err := n.SteinhardtParameter(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, q0[0], 1e-10)

	q4, err := n.SteinhardtParameter(4)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(7.0/12.0), q4[0], 1e-8)

	q6, err := n.SteinhardtParameter(6)
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(2)/4, q6[0], 1e-8)
}

func TestSteinhardtBCC(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	q4, err := n.SteinhardtParameter(4)
	require.NoError(t, err)

	q6, err := n.SteinhardtParameter(6)
	require.NoError(t, err)

	for i := 0; i < st.Len(); i++ {
		assert.InDelta(t, 0.5092, q4[i], 1e-3)
		assert.InDelta(t, 0.6285, q6[i], 1e-3)
	}
}

func TestSteinhardtFCC(t *testing.T) {
	st := fccStructure(t, 3.6)

	n, err := FindNeighbors(st, WithNumNeighbors(12))
	require.NoError(t, err)

	q4, err := n.SteinhardtParameter(4)
	require.NoError(t, err)

	q6, err := n.SteinhardtParameter(6)
	require.NoError(t, err)

	for i := 0; i < st.Len(); i++ {
		assert.InDelta(t, 0.1909, q4[i], 1e-3)
		assert.InDelta(t, 0.5745, q6[i], 1e-3)
	}
}

func TestSteinhardtSeedDeterminism(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	first, err := FindNeighbors(st, WithNumNeighbors(8), WithRandSeed(42))
	require.NoError(t, err)

	second, err := FindNeighbors(st, WithNumNeighbors(8), WithRandSeed(42))
	require.NoError(t, err)

	q1, err := first.SteinhardtParameter(6)
	require.NoError(t, err)

	q2, err := second.SteinhardtParameter(6)
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
}

func TestSteinhardtRotationInvariance(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	// Consecutive calls draw different rotations from the seeded source.
	q1, err := n.SteinhardtParameter(6)
	require.NoError(t, err)

	q2, err := n.SteinhardtParameter(6)
	require.NoError(t, err)

	for i := range q1 {
		assert.InDelta(t, q1[i], q2[i], 1e-8)
	}
}

func TestSteinhardtCutoffTooSmall(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	_, err = n.SteinhardtParameter(4, func(o *SteinhardtOptions) {
		o.CutoffRadius = 0.5
	})

	var noNeighbors *ErrNoNeighbors
	require.ErrorAs(t, err, &noNeighbors)
	assert.Equal(t, 0, noNeighbors.Atom)

	_, err = n.SphericalHarmonics(4, 0, func(o *HarmonicOptions) {
		o.CutoffRadius = 0.5
	})
	require.ErrorAs(t, err, &noNeighbors)
}

func TestSphericalHarmonicsY00(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	values, err := n.SphericalHarmonics(0, 0)
	require.NoError(t, err)

	require.Len(t, values, 1)
	assert.InDelta(t, 1/math.Sqrt(4*math.Pi), real(values[0]), 1e-12)
	assert.InDelta(t, 0.0, imag(values[0]), 1e-12)
}

func TestSphericalHarmonicsRotationAboutZ(t *testing.T) {
	st := bccStructure(t, 2.83, "Fe", "Fe")

	n, err := FindNeighbors(st, WithNumNeighbors(8))
	require.NoError(t, err)

	plain, err := n.SphericalHarmonics(2, 0)
	require.NoError(t, err)

	alpha := 0.7
	rotation := [3][3]float64{
		{math.Cos(alpha), -math.Sin(alpha), 0},
		{math.Sin(alpha), math.Cos(alpha), 0},
		{0, 0, 1},
	}

	// Y_l0 depends only on the polar angle, which a rotation about z keeps.
	rotated, err := n.SphericalHarmonics(2, 0, func(o *HarmonicOptions) {
		o.Rotation = &rotation
	})
	require.NoError(t, err)

	for i := range plain {
		assert.InDelta(t, real(plain[i]), real(rotated[i]), 1e-10)
		assert.InDelta(t, imag(plain[i]), imag(rotated[i]), 1e-10)
	}
}

func TestSphericalHarmonicsValidation(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := FindNeighbors(st, WithNumNeighbors(6))
	require.NoError(t, err)

	tests := []struct {
		name string
		l, m int
	}{
		{name: "negative degree", l: -1, m: 0},
		{name: "order above degree", l: 2, m: 3},
		{name: "order below negative degree", l: 2, m: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.SphericalHarmonics(tt.l, tt.m)
			require.ErrorIs(t, err, ErrInvalidDegree)
		})
	}

	t.Run("steinhardt negative degree", func(t *testing.T) {
		_, err := n.SteinhardtParameter(-1)
		require.ErrorIs(t, err, ErrInvalidDegree)
	})
}

func TestOrderParametersBeforeQuery(t *testing.T) {
	st := scStructure(t, 2.0)

	n, err := New(st, WithNumNeighbors(6))
	require.NoError(t, err)

	_, err = n.SphericalHarmonics(2, 0)
	require.ErrorIs(t, err, ErrNotComputed)

	_, err = n.SteinhardtParameter(4)
	require.ErrorIs(t, err, ErrNotComputed)
}
