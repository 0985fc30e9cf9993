package engine

import "errors"

var (
	// ErrInvalidConfig is returned when required configuration is missing or
	// a planned path cannot be used.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrExecutableNotFound is returned when a server executable cannot be
	// located under the configured root directory.
	ErrExecutableNotFound = errors.New("engine executable not found")

	// ErrInitFailed is returned when the one-shot database initialization
	// exits non-zero or cannot be launched. Initialization is never retried:
	// re-running it against a partially initialized data directory is unsafe.
	ErrInitFailed = errors.New("database initialization failed")

	// ErrStartFailed is returned when the server process cannot be launched.
	ErrStartFailed = errors.New("engine process failed to start")

	// ErrStartupTimeout is returned when the server socket does not appear
	// within the configured startup deadline. A server that cannot bind
	// within the deadline is assumed wedged or misconfigured; there is no
	// retry.
	ErrStartupTimeout = errors.New("timeout waiting for engine socket")

	// ErrInvalidState is returned when a lifecycle operation is called out
	// of order.
	ErrInvalidState = errors.New("invalid lifecycle state")
)
