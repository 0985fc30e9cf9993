package mariabench

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
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordQuery(k int, duration time.Duration, err error) {
//	    p.queryHistogram.Observe(duration.Seconds())
//	    // ... record error state, k, etc.
//	}
type MetricsCollector interface {
	// RecordStartup is called once when construction finishes.
	// duration covers initialization through readiness, err is nil on success.
	RecordStartup(duration time.Duration, err error)

	// RecordFit is called after the data load. rows is the number of vectors
	// attempted, duration is the total time taken, err is nil on success.
	RecordFit(rows int, duration time.Duration, err error)

	// RecordQuery is called after each search. k is the number of neighbors
	// requested, duration is the time taken, err is nil on success.
	RecordQuery(k int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStartup(time.Duration, error)    {}
func (NoopMetricsCollector) RecordFit(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	StartupCount    atomic.Int64
	StartupErrors   atomic.Int64
	StartupNanos    atomic.Int64
	FitCount        atomic.Int64
	FitRows         atomic.Int64
	FitErrors       atomic.Int64
	FitTotalNanos   atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
}

// RecordStartup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStartup(duration time.Duration, err error) {
	b.StartupCount.Add(1)
	b.StartupNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.StartupErrors.Add(1)
	}
}

// RecordFit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFit(rows int, duration time.Duration, err error) {
	b.FitCount.Add(1)
	b.FitRows.Add(int64(rows))
	b.FitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FitErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(k int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		StartupCount:  b.StartupCount.Load(),
		StartupErrors: b.StartupErrors.Load(),
		StartupNanos:  b.StartupNanos.Load(),
		FitCount:      b.FitCount.Load(),
		FitRows:       b.FitRows.Load(),
		FitErrors:     b.FitErrors.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryAvgNanos: b.getAvgQueryNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	StartupCount  int64
	StartupErrors int64
	StartupNanos  int64
	FitCount      int64
	FitRows       int64
	FitErrors     int64
	QueryCount    int64
	QueryErrors   int64
	QueryAvgNanos int64
}
