package cluster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitValidation(t *testing.T) {
	points := [][]float64{{0}, {1}}

	t.Run("No stop condition", func(t *testing.T) {
		_, err := Fit(points)
		require.ErrorIs(t, err, ErrNoStopCondition)
	})

	t.Run("Both stop conditions", func(t *testing.T) {
		_, err := Fit(points, func(o *Options) {
			o.NClusters = 2
			o.DistanceThreshold = 1.0
		})
		require.ErrorIs(t, err, ErrBothStopConditions)
	})

	t.Run("No points", func(t *testing.T) {
		_, err := Fit(nil, func(o *Options) { o.NClusters = 1 })
		require.ErrorIs(t, err, ErrNoPoints)
	})

	t.Run("Inconsistent dimensions", func(t *testing.T) {
		_, err := Fit([][]float64{{0}, {1, 2}}, func(o *Options) { o.NClusters = 1 })
		require.ErrorIs(t, err, ErrInconsistentDimensions)
	})
}

func TestFitThreshold(t *testing.T) {
	// Two tight groups one unit apart.
	points := [][]float64{{0.0}, {0.01}, {0.02}, {1.0}, {1.01}, {1.02}}

	m, err := Fit(points, func(o *Options) { o.DistanceThreshold = 0.5 })
	require.NoError(t, err)

	assert.Equal(t, 2, m.NClusters)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, m.Labels)
	assert.InDelta(t, 0.01, m.Centers[0][0], 1e-12)
	assert.InDelta(t, 1.01, m.Centers[1][0], 1e-12)
}

func TestFitThresholdBoundary(t *testing.T) {
	// Merges happen strictly below the threshold.
	points := [][]float64{{0.0}, {1.0}}

	m, err := Fit(points, func(o *Options) { o.DistanceThreshold = 1.0 })
	require.NoError(t, err)
	assert.Equal(t, 2, m.NClusters)

	m, err = Fit(points, func(o *Options) { o.DistanceThreshold = 1.0 + 1e-9 })
	require.NoError(t, err)
	assert.Equal(t, 1, m.NClusters)
}

func TestFitNClusters(t *testing.T) {
	points := [][]float64{
		{0, 0}, {0.1, 0}, {5, 0}, {5.1, 0}, {10, 0}, {10.1, 0},
	}

	m, err := Fit(points, func(o *Options) { o.NClusters = 3 })
	require.NoError(t, err)

	assert.Equal(t, 3, m.NClusters)
	assert.Equal(t, m.Labels[0], m.Labels[1])
	assert.Equal(t, m.Labels[2], m.Labels[3])
	assert.Equal(t, m.Labels[4], m.Labels[5])
	assert.NotEqual(t, m.Labels[0], m.Labels[2])
	assert.NotEqual(t, m.Labels[2], m.Labels[4])
}

func TestFitLinkage(t *testing.T) {
	// A chain of equidistant points: single linkage merges the whole chain
	// below a threshold just above the gap, complete linkage does not.
	points := [][]float64{{0}, {1}, {2}, {3}}

	single, err := Fit(points, func(o *Options) {
		o.DistanceThreshold = 1.5
		o.Linkage = LinkageSingle
	})
	require.NoError(t, err)
	assert.Equal(t, 1, single.NClusters)

	complete, err := Fit(points, func(o *Options) {
		o.DistanceThreshold = 1.5
		o.Linkage = LinkageComplete
	})
	require.NoError(t, err)
	assert.Greater(t, complete.NClusters, 1)
}

func TestFitAverageLinkage(t *testing.T) {
	points := [][]float64{{0}, {0.2}, {4}, {4.2}}

	m, err := Fit(points, func(o *Options) {
		o.DistanceThreshold = 1.0
		o.Linkage = LinkageAverage
	})
	require.NoError(t, err)

	assert.Equal(t, 2, m.NClusters)
}

func TestFitAffinityL1(t *testing.T) {
	// L1 distance of (1,1) is 2, Euclidean is sqrt(2).
	points := [][]float64{{0, 0}, {1, 1}}

	l1, err := Fit(points, func(o *Options) {
		o.DistanceThreshold = 1.8
		o.Affinity = AffinityL1
	})
	require.NoError(t, err)
	assert.Equal(t, 2, l1.NClusters)

	eu, err := Fit(points, func(o *Options) { o.DistanceThreshold = 1.8 })
	require.NoError(t, err)
	assert.Equal(t, 1, eu.NClusters)
}

func TestFitSinglePoint(t *testing.T) {
	m, err := Fit([][]float64{{3, 4}}, func(o *Options) { o.NClusters = 1 })
	require.NoError(t, err)

	assert.Equal(t, 1, m.NClusters)
	assert.Equal(t, []int{0}, m.Labels)
	assert.Equal(t, []float64{3, 4}, m.Centers[0])
}

func TestFitLabelsFirstOccurrence(t *testing.T) {
	points := [][]float64{{9}, {0}, {9.01}, {0.01}}

	m, err := Fit(points, func(o *Options) { o.DistanceThreshold = 0.5 })
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 0, 1}, m.Labels)
}

func TestFitMoreClustersThanPoints(t *testing.T) {
	m, err := Fit([][]float64{{0}, {1}}, func(o *Options) { o.NClusters = 5 })
	require.NoError(t, err)

	assert.Equal(t, 2, m.NClusters)
	assert.False(t, math.IsNaN(m.Centers[0][0]))
}

func TestFitVectors(t *testing.T) {
	// Three distinct 3-vector groups with tiny jitter.
	points := [][]float64{
		{1, 0, 0}, {1.001, 0, 0},
		{0, 1, 0}, {0, 1.001, 0},
		{0, 0, 1}, {0, 0, 1.001},
	}

	m, err := Fit(points, func(o *Options) { o.DistanceThreshold = 0.1 })
	require.NoError(t, err)

	assert.Equal(t, 3, m.NClusters)
	assert.InDelta(t, 1.0005, m.Centers[0][0], 1e-9)
}
