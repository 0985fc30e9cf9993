package mariabench_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mariabench"
	"github.com/hupe1980/mariabench/engine"
	"github.com/hupe1980/mariabench/internal/execx"
	"github.com/hupe1980/mariabench/internal/vec32"
	"github.com/hupe1980/mariabench/profile"
)

// testVectors is the small workload used across the adapter tests.
var testVectors = [][]float32{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{0, 2, 0, 0},
}

type adapterFixture struct {
	adapter   *mariabench.Adapter
	mock      sqlmock.Sqlmock
	launcher  *execx.FakeLauncher
	metrics   *mariabench.BasicMetricsCollector
	workspace string
}

// newAdapterFixture stands up an adapter against a fake filesystem layout,
// a fake launcher whose "server" binds the socket immediately, and a sqlmock
// database in place of a live connection.
func newAdapterFixture(t *testing.T, optFns ...mariabench.Option) *adapterFixture {
	t.Helper()

	tmp := t.TempDir()
	root := filepath.Join(tmp, "root")
	for dir, name := range map[string]string{
		"scripts": "mariadb-install-db",
		"sql":     "mariadbd",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, dir, name), []byte("#!/bin/sh\n"), 0o755))
	}

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	launcher := execx.NewFakeLauncher()
	launcher.OnStart = func(cmd execx.Command, _ *execx.FakeProcess) {
		for _, arg := range cmd.Args {
			// The fake server binds its socket the moment it starts.
			if path, ok := strings.CutPrefix(arg, "--socket="); ok {
				require.NoError(t, os.WriteFile(path, nil, 0o600))
				t.Cleanup(func() { _ = os.Remove(path) })
			}
			// Fake profilers leave a stat artifact with one cycles line.
			if path, ok := strings.CutPrefix(arg, "--output="); ok {
				require.NoError(t, os.WriteFile(path, []byte("1000,,cycles,500000,100.00,,\n"), 0o644))
			}
		}
	}

	workspace := filepath.Join(tmp, "workspace")
	metrics := &mariabench.BasicMetricsCollector{}

	base := []mariabench.Option{
		mariabench.WithEngineConfig(engine.Config{
			RootDir:           root,
			Workspace:         workspace,
			InitializeOnStart: true,
			PollInterval:      time.Millisecond,
			StartupDeadline:   250 * time.Millisecond,
			ShutdownGrace:     25 * time.Millisecond,
		}),
		mariabench.WithLauncher(launcher),
		mariabench.WithConnectFunc(func(context.Context, string) (*sql.DB, error) {
			return db, nil
		}),
		mariabench.WithProfilingMode(profile.ModeDisabled),
		mariabench.WithMetricsCollector(metrics),
	}

	adapter, err := mariabench.New(context.Background(), "euclidean", mariabench.Params{M: 16}, append(base, optFns...)...)
	require.NoError(t, err)

	return &adapterFixture{
		adapter:   adapter,
		mock:      mock,
		launcher:  launcher,
		metrics:   metrics,
		workspace: workspace,
	}
}

func expectSchema(mock sqlmock.Sqlmock, engineName string) {
	mock.ExpectExec("DROP DATABASE IF EXISTS ann").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE DATABASE ann").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("USE ann").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE t1 (id INT PRIMARY KEY, v BLOB NOT NULL, vector INDEX (v)) ENGINE=" + engineName).
		WillReturnResult(sqlmock.NewResult(0, 0))
}

func expectLoad(mock sqlmock.Sqlmock, vectors [][]float32) {
	prep := mock.ExpectPrepare("INSERT INTO t1 (id, v) VALUES (?, ?)")
	for i, v := range vectors {
		prep.ExpectExec().
			WithArgs(i, vec32.Pack(v)).
			WillReturnResult(sqlmock.NewResult(int64(i), 1))
	}
	mock.ExpectExec("COMMIT").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT count(*) FROM t1").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(len(vectors)))
}

func expectTeardown(mock sqlmock.Sqlmock) {
	mock.ExpectExec("shutdown").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
}

func TestNewRejectsUnsupportedMetric(t *testing.T) {
	t.Parallel()

	for _, metric := range []string{"angular", "hamming", ""} {
		_, err := mariabench.New(context.Background(), metric, mariabench.Params{})
		require.ErrorIs(t, err, mariabench.ErrConfiguration)
		assert.Contains(t, err.Error(), "metric")
	}
}

func TestNewRequiresEnvironment(t *testing.T) {
	unsetenv(t, engine.EnvRootDir)
	unsetenv(t, engine.EnvWorkspace)

	_, err := mariabench.New(context.Background(), "euclidean", mariabench.Params{})
	require.ErrorIs(t, err, mariabench.ErrConfiguration)
}

// unsetenv clears key for the duration of the test. t.Setenv is used first
// so the prior value is restored on cleanup.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestAdapterEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newAdapterFixture(t)

	// The lifecycle ran during construction: one init run, one server start.
	require.Len(t, f.launcher.Runs(), 1)
	require.Len(t, f.launcher.Started(), 1)
	assert.Contains(t, f.launcher.Started()[0].Command().Args, "--mhnsw_max_edges_per_node=16")

	expectSchema(f.mock, "InnoDB")
	expectLoad(f.mock, testVectors)
	require.NoError(t, f.adapter.Fit(ctx, testVectors))

	f.mock.ExpectExec("SET mhnsw_limit_multiplier = 4").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, f.adapter.SetQueryArguments(ctx, 4))

	query := []float32{0.9, 0, 0, 0}
	f.mock.ExpectQuery("SELECT id FROM t1 ORDER BY vec_distance(v, ?) LIMIT ?").
		WithArgs(vec32.Pack(query), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(0))

	ids, err := f.adapter.Query(ctx, query, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, ids)

	assert.Equal(t, "MariaDB(m=16, ef_search=4, engine=InnoDB)", f.adapter.String())

	expectTeardown(f.mock)
	f.adapter.Done(ctx)
	f.adapter.Done(ctx) // second call is a no-op

	require.NoError(t, f.mock.ExpectationsWereMet())

	stats := f.metrics.GetStats()
	assert.EqualValues(t, 1, stats.StartupCount)
	assert.EqualValues(t, 1, stats.FitCount)
	assert.EqualValues(t, 3, stats.FitRows)
	assert.EqualValues(t, 1, stats.QueryCount)
	assert.Zero(t, stats.QueryErrors)
}

func TestAdapterRejectsCallsAfterDone(t *testing.T) {
	ctx := context.Background()
	f := newAdapterFixture(t)

	expectTeardown(f.mock)
	f.adapter.Done(ctx)

	require.ErrorIs(t, f.adapter.Fit(ctx, testVectors), mariabench.ErrClosed)
	require.ErrorIs(t, f.adapter.SetQueryArguments(ctx, 4), mariabench.ErrClosed)
	_, err := f.adapter.Query(ctx, testVectors[0], 1)
	require.ErrorIs(t, err, mariabench.ErrClosed)
}

func TestAdapterProfilingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newAdapterFixture(t, mariabench.WithProfilingMode(profile.ModeStat))

	expectSchema(f.mock, "InnoDB")
	expectLoad(f.mock, testVectors)
	require.NoError(t, f.adapter.Fit(ctx, testVectors))

	artifacts := f.adapter.Artifacts()
	require.Len(t, artifacts, 3)
	assert.Equal(t, profile.PhaseInserting, artifacts[0].Phase)
	assert.Equal(t, profile.PhaseIndexing, artifacts[1].Phase)
	assert.Equal(t, profile.PhaseSearching, artifacts[2].Phase)

	// The server plus one profiler per phase.
	started := f.launcher.Started()
	require.Len(t, started, 4)
	assert.Equal(t, "perf", started[1].Command().Path)
	assert.Equal(t, "stat", started[1].Command().Args[0])

	// Inserting and indexing were stopped during Fit; searching stays
	// attached until Done.
	assert.True(t, started[1].Exited())
	assert.True(t, started[2].Exited())
	assert.False(t, started[3].Exited())

	expectTeardown(f.mock)
	f.adapter.Done(ctx)

	assert.True(t, started[3].Exited())

	summaries := f.adapter.Summaries()
	require.Len(t, summaries, 3)
	for _, s := range summaries {
		require.NoError(t, s.Err)
		assert.True(t, s.HasData)
		assert.EqualValues(t, 1000, s.Cycles)
	}
}

func TestAdapterMemoryUsage(t *testing.T) {
	ctx := context.Background()
	f := newAdapterFixture(t)

	require.NoError(t, os.WriteFile(
		filepath.Join(f.workspace, "data", "ibdata1"),
		make([]byte, 2048), 0o644,
	))
	assert.EqualValues(t, 2, f.adapter.MemoryUsage())

	expectTeardown(f.mock)
	f.adapter.Done(ctx)
}

func TestConnectorGivesUpAfterRetryWindow(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "missing.sock")
	c := mariabench.Connector{
		RetryInterval: 5 * time.Millisecond,
		RetryWindow:   30 * time.Millisecond,
	}

	start := time.Now()
	_, err := c.Connect(context.Background(), socket)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnectorHonorsContext(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "missing.sock")
	c := mariabench.Connector{
		RetryInterval: 5 * time.Millisecond,
		RetryWindow:   time.Minute,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Connect(ctx, socket)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
