// Package results evaluates and persists benchmark outcomes: per-query
// latency statistics, recall against ground truth, and run summaries
// written as CSV rows or JSON lines.
package results

import (
	"math"
	"sort"
	"time"
)

// QueryStats accumulates per-query latencies for one benchmark pass. The
// zero value is ready to use. Not safe for concurrent use; the query loop
// is single-threaded.
type QueryStats struct {
	durations []time.Duration
	failures  int
}

// Observe records one successful query's latency.
func (s *QueryStats) Observe(d time.Duration) {
	s.durations = append(s.durations, d)
}

// ObserveFailure records a failed query.
func (s *QueryStats) ObserveFailure() {
	s.failures++
}

// Count returns the number of successful queries observed.
func (s *QueryStats) Count() int { return len(s.durations) }

// Failures returns the number of failed queries observed.
func (s *QueryStats) Failures() int { return s.failures }

// Percentile returns the p-th latency percentile (nearest-rank, p in
// [0, 100]). Zero observations yield zero.
func (s *QueryStats) Percentile(p float64) time.Duration {
	n := len(s.durations)
	if n == 0 {
		return 0
	}

	sorted := make([]time.Duration, n)
	copy(sorted, s.durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Snapshot is a summary of collected latencies over a wall-clock window.
type Snapshot struct {
	Count    int
	Failures int
	Mean     time.Duration
	P50      time.Duration
	P95      time.Duration
	P99      time.Duration
	QPS      float64
}

// Snapshot summarizes the observations; elapsed is the wall-clock duration
// of the pass and determines QPS.
func (s *QueryStats) Snapshot(elapsed time.Duration) Snapshot {
	snap := Snapshot{
		Count:    len(s.durations),
		Failures: s.failures,
		P50:      s.Percentile(50),
		P95:      s.Percentile(95),
		P99:      s.Percentile(99),
	}
	if len(s.durations) > 0 {
		var sum time.Duration
		for _, d := range s.durations {
			sum += d
		}
		snap.Mean = sum / time.Duration(len(s.durations))
	}
	if elapsed > 0 {
		snap.QPS = float64(snap.Count) / elapsed.Seconds()
	}
	return snap
}
