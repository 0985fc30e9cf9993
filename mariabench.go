package mariabench

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hupe1980/mariabench/engine"
	"github.com/hupe1980/mariabench/internal/vec32"
	"github.com/hupe1980/mariabench/profile"
)

// metricEuclidean is the only distance the server's vector type supports.
const metricEuclidean = "euclidean"

// databaseName is dropped and recreated by Fit; it never carries state
// across runs.
const databaseName = "ann"

// DefaultEngine is the storage engine used when Params leaves it empty.
const DefaultEngine = "InnoDB"

// Params are the benchmark build parameters of one adapter instance.
type Params struct {
	// M bounds the vector graph degree, passed to the server as
	// --mhnsw_max_edges_per_node. Zero keeps the server default.
	M int

	// Engine is the SQL storage engine backing the vector table.
	// Defaults to InnoDB.
	Engine string
}

// Adapter drives one MariaDB server through the benchmark contract:
//
//	New → Fit → SetQueryArguments → Query* → Done
//
// A single goroutine drives the contract, so the adapter does not lock.
// USE and SET are session state, which is why all SQL goes through one
// pinned connection for the adapter's whole lifetime.
type Adapter struct {
	params   Params
	efSearch int

	paths   engine.Paths
	manager *engine.Manager
	session *profile.Session
	builder *profile.ReportBuilder

	db   *sql.DB
	conn *sql.Conn

	metrics MetricsCollector
	logger  *Logger

	summaries []profile.Summary
	closed    bool
}

// New resolves configuration, initializes the data directory, starts the
// server, waits for it to accept sessions and resolves the profiling mode.
// On any failure the server is torn down before the error is returned.
func New(ctx context.Context, metric string, params Params, optFns ...Option) (*Adapter, error) {
	start := time.Now()
	opts := applyOptions(optFns)

	fail := func(err error) (*Adapter, error) {
		opts.metricsCollector.RecordStartup(time.Since(start), err)
		opts.logger.LogStartup(ctx, 0, "", time.Since(start), err)
		return nil, err
	}

	if metric != metricEuclidean {
		return fail(fmt.Errorf("%w: unsupported distance metric %q", ErrConfiguration, metric))
	}
	if params.Engine == "" {
		params.Engine = DefaultEngine
	}

	var cfg engine.Config
	if opts.engineConfig != nil {
		cfg = *opts.engineConfig
	} else {
		var err error
		cfg, err = engine.FromEnv()
		if err != nil {
			return fail(translateError(err))
		}
	}
	if params.M > 0 {
		cfg.MaxEdgesPerNode = params.M
	}

	paths, err := engine.PlanPaths(cfg)
	if err != nil {
		return fail(translateError(err))
	}

	manager := engine.NewManager(cfg, paths,
		engine.WithLauncher(opts.launcher),
		engine.WithLogger(opts.logger.Logger),
	)

	if err := manager.Initialize(ctx); err != nil {
		return fail(translateError(err))
	}
	if err := manager.Start(); err != nil {
		return fail(translateError(err))
	}
	if err := manager.AwaitReady(ctx); err != nil {
		manager.Stop(ctx, nil)
		return fail(translateError(err))
	}

	db, err := opts.connect(ctx, paths.SocketPath)
	if err != nil {
		manager.Stop(ctx, nil)
		return fail(fmt.Errorf("%w: connect over %s: %v", ErrInitialization, paths.SocketPath, err))
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		manager.Stop(ctx, nil)
		return fail(fmt.Errorf("%w: acquire connection: %v", ErrInitialization, err))
	}

	mode := profile.ModeDisabled
	if opts.profilingMode != nil {
		mode = *opts.profilingMode
	} else {
		statRequested, flameRequested := profile.ModeFromEnv()
		mode, _ = profile.ResolveMode(ctx, statRequested, flameRequested, opts.launcher, opts.logger.Logger)
	}

	a := &Adapter{
		params:  params,
		paths:   paths,
		manager: manager,
		session: profile.NewSession(mode, manager.PID(), paths.ResultsDir,
			profile.WithLauncher(opts.launcher),
			profile.WithLogger(opts.logger.Logger),
		),
		builder: profile.NewReportBuilder(
			profile.WithBuilderLauncher(opts.launcher),
			profile.WithBuilderLogger(opts.logger.Logger),
		),
		db:      db,
		conn:    conn,
		metrics: opts.metricsCollector,
		logger:  opts.logger,
	}

	a.metrics.RecordStartup(time.Since(start), nil)
	a.logger.LogStartup(ctx, manager.PID(), paths.SocketPath, time.Since(start), nil)
	return a, nil
}

// Fit recreates the benchmark schema and loads the vectors, profiling the
// inserting and indexing phases. It finishes by opening the searching phase,
// which deliberately stays open until Done so every query is sampled.
// The harness calls Fit exactly once per adapter.
func (a *Adapter) Fit(ctx context.Context, vectors [][]float32) error {
	start := time.Now()

	done := func(err error) error {
		elapsed := time.Since(start)
		a.metrics.RecordFit(len(vectors), elapsed, err)
		a.logger.LogFit(ctx, len(vectors), elapsed, err)
		return err
	}

	if a.closed {
		return done(ErrClosed)
	}

	schema := []string{
		"DROP DATABASE IF EXISTS " + databaseName,
		"CREATE DATABASE " + databaseName,
		"USE " + databaseName,
		fmt.Sprintf("CREATE TABLE t1 (id INT PRIMARY KEY, v BLOB NOT NULL, vector INDEX (v)) ENGINE=%s", a.params.Engine),
	}
	for _, stmt := range schema {
		if _, err := a.conn.ExecContext(ctx, stmt); err != nil {
			return done(fmt.Errorf("prepare schema: %w", err))
		}
	}

	a.session.StartPhase(ctx, profile.PhaseInserting)
	if err := a.insertAll(ctx, vectors); err != nil {
		a.session.StopPhase()
		return done(err)
	}
	a.session.StopPhase()

	var rows int64
	if err := a.conn.QueryRowContext(ctx, "SELECT count(*) FROM t1").Scan(&rows); err != nil {
		return done(fmt.Errorf("count rows: %w", err))
	}
	a.logger.Info("rows loaded", "rows", rows)

	// The index is built during insert, so this window is empty for now;
	// the phase is kept for when deferred index build lands.
	a.session.StartPhase(ctx, profile.PhaseIndexing)
	a.session.StopPhase()

	a.session.StartPhase(ctx, profile.PhaseSearching)
	return done(nil)
}

func (a *Adapter) insertAll(ctx context.Context, vectors [][]float32) error {
	stmt, err := a.conn.PrepareContext(ctx, "INSERT INTO t1 (id, v) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range vectors {
		if _, err := stmt.ExecContext(ctx, i, vec32.Pack(v)); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if _, err := a.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

// SetQueryArguments fixes the search-quality knob for subsequent queries.
// The server rejects placeholders in SET, so the value is formatted in.
func (a *Adapter) SetQueryArguments(ctx context.Context, efSearch int) error {
	if a.closed {
		return ErrClosed
	}
	a.efSearch = efSearch
	_, err := a.conn.ExecContext(ctx, fmt.Sprintf("SET mhnsw_limit_multiplier = %d", efSearch))
	return err
}

// Query returns the ids of the k nearest vectors, ordered by ascending
// distance.
func (a *Adapter) Query(ctx context.Context, vector []float32, k int) ([]int, error) {
	start := time.Now()
	if a.closed {
		return nil, ErrClosed
	}

	rows, err := a.conn.QueryContext(ctx,
		"SELECT id FROM t1 ORDER BY vec_distance(v, ?) LIMIT ?",
		vec32.Pack(vector), k,
	)
	if err != nil {
		a.metrics.RecordQuery(k, time.Since(start), err)
		a.logger.LogQuery(ctx, k, 0, err)
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0, k)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			a.metrics.RecordQuery(k, time.Since(start), err)
			a.logger.LogQuery(ctx, k, len(ids), err)
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		a.metrics.RecordQuery(k, time.Since(start), err)
		a.logger.LogQuery(ctx, k, len(ids), err)
		return nil, err
	}

	a.metrics.RecordQuery(k, time.Since(start), nil)
	a.logger.LogQuery(ctx, k, len(ids), nil)
	return ids, nil
}

// Done tears the run down: graceful SQL shutdown, profiler stop, report
// building, connection close. Teardown is best-effort — failures are logged
// and swallowed so Done always completes. A second call is a no-op.
func (a *Adapter) Done(ctx context.Context) {
	if a.closed {
		return
	}
	a.closed = true

	uptime := a.manager.Uptime()
	a.manager.Stop(ctx, func(ctx context.Context) error {
		_, err := a.conn.ExecContext(ctx, "shutdown")
		return err
	})

	a.session.StopPhase()

	if artifacts := a.session.Artifacts(); len(artifacts) > 0 {
		a.summaries = a.builder.Build(ctx, artifacts)
		for _, s := range a.summaries {
			switch {
			case s.Err != nil:
				a.logger.Warn("artifact post-processing failed", "path", s.Artifact.Path, "error", s.Err)
			case s.RenderedPath != "":
				a.logger.Info("flame graph rendered", "path", s.RenderedPath)
			case s.HasData:
				a.logger.Info("cycle summary", "phase", s.Artifact.Phase, "cycles", s.Cycles)
			default:
				a.logger.Info("no cycle data recorded", "phase", s.Artifact.Phase)
			}
		}
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Debug("connection close", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Debug("database close", "error", err)
	}
	a.logger.LogTeardown(ctx, uptime)
}

// String implements fmt.Stringer in the format the harness reports runs
// under.
func (a *Adapter) String() string {
	return fmt.Sprintf("MariaDB(m=%d, ef_search=%d, engine=%s)", a.params.M, a.efSearch, a.params.Engine)
}

// MemoryUsage returns the data-directory size in KiB, a coarse stand-in
// until the server exposes an index-memory counter.
func (a *Adapter) MemoryUsage() int64 {
	size, err := a.manager.DataDirSize()
	if err != nil {
		return 0
	}
	return size / 1024
}

// Artifacts returns the profiler artifacts recorded so far.
func (a *Adapter) Artifacts() []profile.Artifact {
	return a.session.Artifacts()
}

// Summaries returns the profile post-processing results collected by Done.
func (a *Adapter) Summaries() []profile.Summary {
	return a.summaries
}

// ResultsDir returns the directory holding artifacts and reports for this
// run.
func (a *Adapter) ResultsDir() string {
	return a.paths.ResultsDir
}
