package results

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(efSearch int) RunResult {
	return RunResult{
		RunID:       "run-001",
		Timestamp:   time.Date(2026, 8, 22, 10, 30, 0, 0, time.UTC),
		Dataset:     "synthetic-10k",
		Engine:      "InnoDB",
		M:           16,
		EfSearch:    efSearch,
		K:           10,
		Queries:     1000,
		Recall:      0.98,
		QPS:         512.5,
		Mean:        2 * time.Millisecond,
		P50:         1900 * time.Microsecond,
		P95:         4 * time.Millisecond,
		P99:         9 * time.Millisecond,
		FitDuration: 42 * time.Second,
		Cycles:      123456789,
		MemoryKiB:   2048,
	}
}

func TestAppendCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	require.NoError(t, AppendCSV(path, sampleResult(10)))
	require.NoError(t, AppendCSV(path, sampleResult(80)))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	// One header followed by one row per append.
	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "10", records[1][5])
	assert.Equal(t, "80", records[2][5])
	for _, rec := range records[1:] {
		assert.Len(t, rec, len(csvHeader))
		assert.Equal(t, "run-001", rec[0])
		assert.Equal(t, "0.9800", rec[9])
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, sampleResult(10)))
	require.NoError(t, WriteJSONL(&buf, sampleResult(80)))

	sc := bufio.NewScanner(&buf)
	var lines int
	for sc.Scan() {
		var got RunResult
		require.NoError(t, json.Unmarshal(sc.Bytes(), &got))
		assert.Equal(t, "run-001", got.RunID)
		assert.Equal(t, 0.98, got.Recall)
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestAppendJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")

	require.NoError(t, AppendJSONL(path, sampleResult(10)))
	require.NoError(t, AppendJSONL(path, sampleResult(80)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}
