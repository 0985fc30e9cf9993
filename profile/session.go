package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hupe1980/mariabench/internal/execx"
)

// Phase tags one benchmark stage; it namespaces artifacts and nothing else.
type Phase string

// The phases of one benchmark run.
const (
	PhaseInserting Phase = "inserting"
	PhaseIndexing  Phase = "indexing"
	PhaseSearching Phase = "searching"
)

// stampLayout formats the session timestamp baked into artifact names.
const stampLayout = "2006-01-02-15-04-05"

// DefaultStopGrace bounds how long StopPhase waits for perf to flush its
// buffered samples and exit after the interrupt.
const DefaultStopGrace = 10 * time.Second

// Artifact is one profiler output file, tagged with the phase that produced
// it. Artifacts are appended when a phase starts and never mutated after.
type Artifact struct {
	Phase Phase
	Path  string
	Mode  Mode
}

// Session drives the profiler subprocess for one engine run. All methods are
// safe for the occasional concurrent call from teardown paths.
type Session struct {
	mode       Mode
	pid        int
	resultsDir string
	stamp      string
	stopGrace  time.Duration
	launcher   execx.Launcher
	logger     *slog.Logger

	mu        sync.Mutex
	proc      execx.Process
	artifacts []Artifact
	warnings  []string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLauncher substitutes the process launcher. Tests inject a fake.
func WithLauncher(l execx.Launcher) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.launcher = l
		}
	}
}

// WithLogger sets the logger for profiling events.
func WithLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStopGrace overrides the profiler stop grace period.
func WithStopGrace(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.stopGrace = d
		}
	}
}

// WithStamp pins the session timestamp used in artifact names.
func WithStamp(t time.Time) SessionOption {
	return func(s *Session) {
		s.stamp = t.Format(stampLayout)
	}
}

// NewSession creates a profiling session targeting pid, writing artifacts
// under resultsDir. The mode is fixed for the session's lifetime.
func NewSession(mode Mode, pid int, resultsDir string, optFns ...SessionOption) *Session {
	s := &Session{
		mode:       mode,
		pid:        pid,
		resultsDir: resultsDir,
		stamp:      time.Now().Format(stampLayout),
		stopGrace:  DefaultStopGrace,
		launcher:   execx.OSLauncher{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(s)
		}
	}
	return s
}

// Mode returns the session's effective profiling mode.
func (s *Session) Mode() Mode { return s.mode }

// Active reports whether a profiler subprocess is currently attached.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil
}

// Artifacts returns the artifacts produced so far, in start order.
func (s *Session) Artifacts() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.artifacts))
	copy(out, s.artifacts)
	return out
}

// Warnings returns the degradations recorded so far.
func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// StartPhase attaches the profiler for the named phase. A still-running
// previous phase is stopped first, so at most one profiler subprocess ever
// targets the engine PID. The artifact reference is recorded before the
// subprocess launches so teardown always finds it. Failures degrade to
// warnings.
func (s *Session) StartPhase(ctx context.Context, phase Phase) {
	if s.mode == ModeDisabled {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	if err := ctx.Err(); err != nil {
		s.warnLocked(fmt.Sprintf("phase %s not profiled: %v", phase, err))
		return
	}

	var cmd execx.Command
	var artifact Artifact
	switch s.mode {
	case ModeFlameGraph:
		path := filepath.Join(s.resultsDir, fmt.Sprintf("perf.data.%s.%s", phase, s.stamp))
		artifact = Artifact{Phase: phase, Path: path, Mode: ModeFlameGraph}
		cmd = execx.Command{
			Path: perfExecutable,
			Args: []string{"record", "-p", strconv.Itoa(s.pid), "-g", "--freq=100", "--output=" + path},
		}
	case ModeStat:
		path := filepath.Join(s.resultsDir, fmt.Sprintf("perf.stat.%s.%s", phase, s.stamp))
		artifact = Artifact{Phase: phase, Path: path, Mode: ModeStat}
		cmd = execx.Command{
			Path: perfExecutable,
			Args: []string{"stat", "-x,", "--output=" + path, "-p", strconv.Itoa(s.pid)},
		}
	}

	s.artifacts = append(s.artifacts, artifact)

	proc, err := s.launcher.Start(cmd)
	if err != nil {
		s.warnLocked(fmt.Sprintf("profiler failed to start for phase %s: %v", phase, err))
		return
	}
	s.proc = proc
	s.logger.Info("profiling phase started",
		"phase", phase,
		"mode", s.mode,
		"target_pid", s.pid,
		"artifact", artifact.Path,
	)
}

// StopPhase detaches the current profiler, if any. perf needs a graceful
// interrupt to flush buffered samples; a hard kill would truncate the
// artifact. A profiler that does not exit within the grace period is
// abandoned with a warning. StopPhase is idempotent.
func (s *Session) StopPhase() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.proc == nil {
		return
	}
	proc := s.proc
	s.proc = nil

	if err := proc.Signal(os.Interrupt); err != nil {
		// perf record exits on its own when the target dies; reap it.
		s.logger.Debug("profiler already exited", "pid", proc.PID(), "error", err)
		_ = execx.WaitTimeout(proc, s.stopGrace)
		return
	}

	if err := execx.WaitTimeout(proc, s.stopGrace); err != nil {
		if errors.Is(err, execx.ErrWaitTimeout) {
			s.warnLocked(fmt.Sprintf("profiler pid %d did not flush within %s; its artifact may be truncated", proc.PID(), s.stopGrace))
			return
		}
		// Non-zero exits still usually leave a usable artifact.
		s.logger.Debug("profiler exited", "pid", proc.PID(), "error", err)
	}
	s.logger.Info("profiling phase stopped", "pid", proc.PID())
}

func (s *Session) warnLocked(msg string) {
	s.warnings = append(s.warnings, msg)
	s.logger.Warn(msg)
}
