package results

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"
)

// RunResult is the summary row of one benchmark pass at one efSearch value.
type RunResult struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Dataset   string    `json:"dataset"`
	Engine    string    `json:"engine"`
	M         int       `json:"m"`
	EfSearch  int       `json:"ef_search"`
	K         int       `json:"k"`

	Queries  int     `json:"queries"`
	Failures int     `json:"failures,omitempty"`
	Recall   float64 `json:"recall"`
	QPS      float64 `json:"qps"`

	Mean time.Duration `json:"mean_latency_ns"`
	P50  time.Duration `json:"p50_latency_ns"`
	P95  time.Duration `json:"p95_latency_ns"`
	P99  time.Duration `json:"p99_latency_ns"`

	FitDuration time.Duration `json:"fit_duration_ns"`

	// Cycles is the summed CPU-cycle count from stat profiling, when the
	// run was profiled in stat mode.
	Cycles uint64 `json:"cycles,omitempty"`

	// MemoryKiB is the engine data-directory footprint.
	MemoryKiB int64 `json:"memory_kib,omitempty"`
}

var csvHeader = []string{
	"run_id", "timestamp", "dataset", "engine", "m", "ef_search", "k",
	"queries", "failures", "recall", "qps",
	"mean_ms", "p50_ms", "p95_ms", "p99_ms", "fit_s",
	"cycles", "memory_kib",
}

func (r RunResult) csvRecord() []string {
	ms := func(d time.Duration) string {
		return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 3, 64)
	}
	return []string{
		r.RunID,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Dataset,
		r.Engine,
		strconv.Itoa(r.M),
		strconv.Itoa(r.EfSearch),
		strconv.Itoa(r.K),
		strconv.Itoa(r.Queries),
		strconv.Itoa(r.Failures),
		strconv.FormatFloat(r.Recall, 'f', 4, 64),
		strconv.FormatFloat(r.QPS, 'f', 2, 64),
		ms(r.Mean),
		ms(r.P50),
		ms(r.P95),
		ms(r.P99),
		strconv.FormatFloat(r.FitDuration.Seconds(), 'f', 2, 64),
		strconv.FormatUint(r.Cycles, 10),
		strconv.FormatInt(r.MemoryKiB, 10),
	}
}

// AppendCSV appends the result as one CSV row, writing the header first iff
// the file is new or empty. Successive runs share one growing file.
func AppendCSV(path string, r RunResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Write(r.csvRecord()); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSONL writes the result as a single JSON line.
func WriteJSONL(w io.Writer, r RunResult) error {
	return json.NewEncoder(w).Encode(r)
}

// AppendJSONL appends the result as one JSON line to the file at path.
func AppendJSONL(path string, r RunResult) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := WriteJSONL(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
