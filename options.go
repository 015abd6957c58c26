package neighgo

import (
	"log/slog"
	"math"
)

type options struct {
	numNeighbors     int
	cutoffRadius     float64
	widthBuffer      float64
	normOrder        int
	tolerance        int
	wrapPositions    bool
	randSeed         int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures engine construction.
type Option func(*options)

// WithNumNeighbors configures the number of neighbor slots per query point.
// Leave it unset to derive the count from the cutoff radius and the atom
// density of the reference structure.
func WithNumNeighbors(numNeighbors int) Option {
	return func(o *options) {
		o.numNeighbors = numNeighbors
	}
}

// WithCutoffRadius bounds the neighbor search radius. Slots whose distance
// exceeds the cutoff are filled with sentinel entries.
//
// The default is +Inf, meaning the slot count alone bounds the search.
func WithCutoffRadius(cutoffRadius float64) Option {
	return func(o *options) {
		o.cutoffRadius = cutoffRadius
	}
}

// WithWidthBuffer scales the thickness of the periodic halo built around the
// reference structure. Larger values make the first query slower but reduce
// the chance of missing neighbors near cell boundaries.
func WithWidthBuffer(widthBuffer float64) Option {
	return func(o *options) {
		o.widthBuffer = widthBuffer
	}
}

// WithNormOrder configures the Minkowski order p of every distance the
// engine computes. It is fixed for the lifetime of the engine.
//
// The default is 2, the Euclidean norm.
func WithNormOrder(normOrder int) Option {
	return func(o *options) {
		o.normOrder = normOrder
	}
}

// WithTolerance configures the number of decimals distances are rounded to
// when grouping them into shells.
func WithTolerance(tolerance int) Option {
	return func(o *options) {
		o.tolerance = tolerance
	}
}

// WithWrapPositions folds query positions back into the primary cell along
// periodic directions before searching. Positions already inside the cell
// are unaffected.
func WithWrapPositions(wrapPositions bool) Option {
	return func(o *options) {
		o.wrapPositions = wrapPositions
	}
}

// WithRandSeed seeds the random rotation applied by SteinhardtParameter.
// Runs with the same seed produce identical results.
func WithRandSeed(seed int64) Option {
	return func(o *options) {
		o.randSeed = seed
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &neighgo.BasicMetricsCollector{}
//	n, _ := neighgo.FindNeighbors(st, neighgo.WithMetricsCollector(metrics))
//	// ... use n ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := neighgo.NewJSONLogger(slog.LevelInfo)
//	n, _ := neighgo.FindNeighbors(st, neighgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		cutoffRadius:     math.Inf(1),
		widthBuffer:      1.2,
		normOrder:        2,
		tolerance:        2,
		randSeed:         1,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
