// Package engine manages the lifecycle of an external MariaDB server used
// for benchmarking: one-shot on-disk initialization, background startup with
// generated runtime paths, socket-based readiness polling, and graceful
// shutdown over an existing SQL connection.
//
// The server runs with networking and grant checks disabled and is reached
// exclusively through a Unix domain socket. This is a benchmark-only,
// single-host, trusted-local-access deployment model and is explicitly not
// production-safe.
//
// A Manager owns exactly one server process. Running two managers against
// the same data directory is not prevented here; callers must keep data
// directories distinct (PlanPaths makes the socket path unique per run, but
// the data directory is configuration).
package engine
