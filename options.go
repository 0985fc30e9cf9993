package mariabench

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/hupe1980/mariabench/engine"
	"github.com/hupe1980/mariabench/internal/execx"
	"github.com/hupe1980/mariabench/profile"
)

// ConnectFunc opens the SQL handle once the server socket exists. The
// default dials the Unix socket with a short ping-retry window; tests
// substitute a fake database.
type ConnectFunc func(ctx context.Context, socketPath string) (*sql.DB, error)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	launcher         execx.Launcher
	engineConfig     *engine.Config
	connect          ConnectFunc
	profilingMode    *profile.Mode
}

// Option configures Adapter construction.
type Option func(*options)

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := mariabench.NewJSONLogger(slog.LevelInfo)
//	adapter, _ := mariabench.New(ctx, metric, params, mariabench.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mariabench.BasicMetricsCollector{}
//	adapter, _ := mariabench.New(ctx, metric, params, mariabench.WithMetricsCollector(metrics))
//	// ... run the benchmark ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metricsCollector = mc
		}
	}
}

// WithLauncher substitutes the launcher used for every external process
// (initialization, the server, the profiler, report rendering). Tests
// inject a fake.
func WithLauncher(l execx.Launcher) Option {
	return func(o *options) {
		if l != nil {
			o.launcher = l
		}
	}
}

// WithEngineConfig supplies the engine configuration directly instead of
// resolving it from the environment.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) {
		o.engineConfig = &cfg
	}
}

// WithConnectFunc substitutes the SQL connector.
func WithConnectFunc(fn ConnectFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.connect = fn
		}
	}
}

// WithProfilingMode pins the profiling mode, bypassing the PERF/FLAMEGRAPH
// environment selectors and the tool-availability probe.
func WithProfilingMode(mode profile.Mode) Option {
	return func(o *options) {
		o.profilingMode = &mode
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		launcher:         execx.OSLauncher{},
		connect:          Connector{}.Connect,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
