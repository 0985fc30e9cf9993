package mariabench

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with benchmark-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithRunID adds a run identifier field to the logger.
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", runID),
	}
}

// WithEngine adds a storage-engine field to the logger.
func (l *Logger) WithEngine(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("engine", name),
	}
}

// LogStartup logs the outcome of server construction.
func (l *Logger) LogStartup(ctx context.Context, pid int, socket string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "engine startup failed",
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "engine started",
			"pid", pid,
			"socket", socket,
			"elapsed", elapsed.Round(time.Millisecond),
		)
	}
}

// LogFit logs the data-load stage.
func (l *Logger) LogFit(ctx context.Context, rows int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "fit failed",
			"rows", rows,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "fit completed",
			"rows", rows,
			"elapsed", elapsed.Round(time.Millisecond),
		)
	}
}

// LogQuery logs a nearest-neighbor search.
func (l *Logger) LogQuery(ctx context.Context, k, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"k", k,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"k", k,
			"results", resultsFound,
		)
	}
}

// LogTeardown logs the end of a run.
func (l *Logger) LogTeardown(ctx context.Context, uptime time.Duration) {
	l.InfoContext(ctx, "teardown completed",
		"uptime", uptime.Round(time.Millisecond),
	)
}
