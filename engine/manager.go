package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/mariabench/internal/execx"
)

// ShutdownFunc issues the graceful shutdown command over an existing SQL
// connection. Stop calls it before waiting for the process to exit.
type ShutdownFunc func(ctx context.Context) error

// Manager owns one external server process and walks it through its
// lifecycle:
//
//	Uninitialized → Initializing → Initialized → Starting → Ready → Stopping → Stopped
//
// Ready is the only state in which queries may be issued; Stopped is
// terminal. The manager is driven by a single goroutine and does not lock.
type Manager struct {
	cfg      Config
	paths    Paths
	launcher execx.Launcher
	logger   *slog.Logger

	state     State
	proc      execx.Process
	startedAt time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLauncher substitutes the process launcher. Tests inject a fake.
func WithLauncher(l execx.Launcher) Option {
	return func(m *Manager) {
		if l != nil {
			m.launcher = l
		}
	}
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager for the given configuration and planned
// paths. Zero timing knobs in cfg are filled with the package defaults.
func NewManager(cfg Config, paths Paths, optFns ...Option) *Manager {
	m := &Manager{
		cfg:      cfg.withDefaults(),
		paths:    paths,
		launcher: execx.OSLauncher{},
		logger:   slog.New(slog.DiscardHandler),
		state:    StateUninitialized,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(m)
		}
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State { return m.state }

// PID returns the server process ID, or 0 before Start.
func (m *Manager) PID() int {
	if m.proc == nil {
		return 0
	}
	return m.proc.PID()
}

// Uptime returns how long the server process has been running.
func (m *Manager) Uptime() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	return time.Since(m.startedAt)
}

// Initialize runs the one-shot database initialization against the data
// directory and blocks until it exits. When the configuration does not
// request initialization (DO_INIT_MARIADB=no, typically because a container
// image initialized at build time) it only advances the state.
//
// A failure is fatal and is not retried: re-running initialization against a
// partially initialized data directory risks corrupting it.
func (m *Manager) Initialize(ctx context.Context) error {
	if m.state != StateUninitialized {
		return fmt.Errorf("%w: initialize called in state %s", ErrInvalidState, m.state)
	}
	if !m.cfg.InitializeOnStart {
		m.logger.Info("skipping database initialization", "data_dir", m.paths.DataDir)
		m.state = StateInitialized
		return nil
	}

	m.state = StateInitializing
	path, err := LocateExecutable(m.cfg.RootDir, installExecutable)
	if err != nil {
		return err
	}

	cmd := execx.Command{Path: path, Args: m.initArgs()}
	m.logger.Info("initializing database", "command", cmd.String())
	if err := m.launcher.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInitFailed, installExecutable, err)
	}

	m.state = StateInitialized
	return nil
}

func (m *Manager) initArgs() []string {
	args := []string{
		"--no-defaults",
		"--verbose",
		"--skip-name-resolve",
		"--skip-test-db",
		"--datadir=" + m.paths.DataDir,
	}
	if m.cfg.SourceDir != "" {
		args = append(args, "--srcdir="+m.cfg.SourceDir)
	}
	return args
}

// Start launches the server in the background, bound to the planned socket
// with networking and grant checks disabled. It does not wait for readiness;
// call AwaitReady next.
func (m *Manager) Start() error {
	if m.state != StateInitialized {
		return fmt.Errorf("%w: start called in state %s", ErrInvalidState, m.state)
	}

	path, err := LocateExecutable(m.cfg.RootDir, serverExecutable)
	if err != nil {
		return err
	}

	cmd := execx.Command{Path: path, Args: m.startArgs()}
	m.logger.Info("starting server", "command", cmd.String())
	proc, err := m.launcher.Start(cmd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}

	m.proc = proc
	m.startedAt = time.Now()
	m.state = StateStarting
	m.logger.Info("server process launched", "pid", proc.PID(), "socket", m.paths.SocketPath)
	return nil
}

func (m *Manager) startArgs() []string {
	args := []string{
		"--no-defaults",
		"--datadir=" + m.paths.DataDir,
		"--log_error=" + m.paths.LogFile,
		"--socket=" + m.paths.SocketPath,
		"--skip_networking",
		"--skip_grant_tables",
	}
	if m.cfg.MaxEdgesPerNode > 0 {
		args = append(args, fmt.Sprintf("--mhnsw_max_edges_per_node=%d", m.cfg.MaxEdgesPerNode))
	}
	// mariadbd refuses to run as root without being told so explicitly.
	if os.Geteuid() == 0 {
		args = append(args, "--user=root")
	}
	return args
}

// AwaitReady polls for the socket file at the configured interval until it
// appears, the startup deadline elapses, or ctx is canceled. On success the
// manager transitions to Ready.
//
// The socket existing means the listener is up, not that the server accepts
// logical sessions yet; the first connection attempt should retry briefly.
func (m *Manager) AwaitReady(ctx context.Context) error {
	if m.state != StateStarting {
		return fmt.Errorf("%w: awaitReady called in state %s", ErrInvalidState, m.state)
	}

	m.logger.Info("waiting for server socket",
		"socket", m.paths.SocketPath,
		"interval", m.cfg.PollInterval,
		"deadline", m.cfg.StartupDeadline,
	)

	deadline := time.NewTimer(m.cfg.StartupDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(m.paths.SocketPath); err == nil {
			m.state = StateReady
			m.logger.Info("server ready", "pid", m.PID(), "elapsed", time.Since(m.startedAt).Round(time.Millisecond))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s did not appear within %s", ErrStartupTimeout, m.paths.SocketPath, m.cfg.StartupDeadline)
		case <-ticker.C:
		}
	}
}

// Stop shuts the server down by issuing the graceful shutdown command over
// the existing connection (never a process signal) and waiting up to the
// shutdown grace for the process to exit. Every failure along the way is
// logged and swallowed: teardown always completes, even when the connection
// or the process is already gone. Stop is idempotent.
func (m *Manager) Stop(ctx context.Context, shutdown ShutdownFunc) {
	if m.state == StateStopped {
		return
	}
	m.state = StateStopping

	if shutdown != nil {
		if err := shutdown(ctx); err != nil {
			m.logger.Warn("shutdown command failed", "error", err)
		}
	}

	if m.proc != nil {
		if err := execx.WaitTimeout(m.proc, m.cfg.ShutdownGrace); err != nil {
			if errors.Is(err, execx.ErrWaitTimeout) {
				m.logger.Warn("server did not exit within grace period",
					"pid", m.proc.PID(),
					"grace", m.cfg.ShutdownGrace,
				)
			} else {
				m.logger.Debug("server exited", "error", err)
			}
		}
		m.proc = nil
	}

	m.state = StateStopped
	m.logger.Info("server stopped")
}

// DataDirSize walks the data directory and returns its total size in bytes.
// Used as a coarse stand-in for index memory until the server exposes a
// dedicated counter.
func (m *Manager) DataDirSize() (int64, error) {
	var total int64
	err := filepath.WalkDir(m.paths.DataDir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
