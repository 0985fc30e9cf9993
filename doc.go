// Package mariabench adapts a vector-search benchmark harness to MariaDB's
// vector engine.
//
// Unlike an embedded index, the system under test here is an external server
// process. The adapter owns its full lifecycle: it initializes a data
// directory, starts mariadbd bound to a unique Unix domain socket, polls for
// readiness under a deadline, loads vectors over SQL, answers nearest
// neighbor queries, optionally attaches a CPU profiler to the live server
// PID per benchmark phase, and shuts everything down gracefully.
//
// # Usage
//
//	ctx := context.Background()
//
//	adapter, err := mariabench.New(ctx, "euclidean", mariabench.Params{M: 16, Engine: "InnoDB"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer adapter.Done(ctx)
//
//	if err := adapter.Fit(ctx, vectors); err != nil {
//	    log.Fatal(err)
//	}
//	if err := adapter.SetQueryArguments(ctx, 4); err != nil {
//	    log.Fatal(err)
//	}
//	ids, err := adapter.Query(ctx, query, 10)
//
// # Environment
//
//	MARIADB_ROOT_DIR      build or installation root (required)
//	MARIADB_SOURCE_DIR    source tree of a local build (optional)
//	MARIADB_DB_WORKSPACE  directory for data, error log and results (required)
//	DO_INIT_MARIADB       "no" skips data-directory initialization
//	PERF                  "yes" counts CPU cycles per phase with perf stat
//	FLAMEGRAPH            "yes" renders per-phase flame graphs with perf record
//
// The benchmark server runs with networking and grant checks disabled. It is
// single-host and trusted-local only, never production-safe.
package mariabench
