package neighgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    queryCounter   prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordQuery(positions, numNeighbors int, duration time.Duration, err error) {
//	    p.queryCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordQuery is called after each neighbor query.
	// positions is the number of query rows, numNeighbors the resolved slot
	// count, duration is the total time taken, err is nil if successful.
	RecordQuery(positions, numNeighbors int, duration time.Duration, err error)

	// RecordClustering is called after each shell refinement clustering.
	// entries is the number of clustered table entries.
	RecordClustering(entries int, duration time.Duration, err error)

	// RecordOrderParameter is called after each spherical-harmonic
	// evaluation. degree is the harmonic degree l.
	RecordOrderParameter(degree int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordQuery(int, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordClustering(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordOrderParameter(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	QueryCount               atomic.Int64
	QueryErrors              atomic.Int64
	QueryTotalNanos          atomic.Int64
	ClusteringCount          atomic.Int64
	ClusteringErrors         atomic.Int64
	ClusteringTotalNanos     atomic.Int64
	OrderParameterCount      atomic.Int64
	OrderParameterErrors     atomic.Int64
	OrderParameterTotalNanos atomic.Int64
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(positions, numNeighbors int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordClustering implements MetricsCollector.
func (b *BasicMetricsCollector) RecordClustering(entries int, duration time.Duration, err error) {
	b.ClusteringCount.Add(1)
	b.ClusteringTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ClusteringErrors.Add(1)
	}
}

// RecordOrderParameter implements MetricsCollector.
func (b *BasicMetricsCollector) RecordOrderParameter(degree int, duration time.Duration, err error) {
	b.OrderParameterCount.Add(1)
	b.OrderParameterTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.OrderParameterErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		QueryCount:           b.QueryCount.Load(),
		QueryErrors:          b.QueryErrors.Load(),
		QueryAvgNanos:        avgNanos(&b.QueryTotalNanos, &b.QueryCount),
		ClusteringCount:      b.ClusteringCount.Load(),
		ClusteringErrors:     b.ClusteringErrors.Load(),
		ClusteringAvgNanos:   avgNanos(&b.ClusteringTotalNanos, &b.ClusteringCount),
		OrderParameterCount:  b.OrderParameterCount.Load(),
		OrderParameterErrors: b.OrderParameterErrors.Load(),
		OrderParameterAvgNanos: avgNanos(
			&b.OrderParameterTotalNanos, &b.OrderParameterCount),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	c := count.Load()
	if c == 0 {
		return 0
	}
	return total.Load() / c
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	QueryCount             int64
	QueryErrors            int64
	QueryAvgNanos          int64
	ClusteringCount        int64
	ClusteringErrors       int64
	ClusteringAvgNanos     int64
	OrderParameterCount    int64
	OrderParameterErrors   int64
	OrderParameterAvgNanos int64
}
