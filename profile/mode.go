package profile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/mariabench/internal/execx"
)

// Mode selects what, if anything, is attached to the engine process.
type Mode int

const (
	// ModeDisabled runs the benchmark without a profiler.
	ModeDisabled Mode = iota

	// ModeStat attaches perf stat and sums CPU-cycle counters per phase.
	ModeStat

	// ModeFlameGraph attaches perf record and renders flame graphs per phase.
	ModeFlameGraph
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeStat:
		return "stat"
	case ModeFlameGraph:
		return "flamegraph"
	default:
		return "disabled"
	}
}

// Environment variables selecting the profiling mode. A value of "yes"
// requests the mode; anything else leaves it off.
const (
	EnvStat       = "PERF"
	EnvFlameGraph = "FLAMEGRAPH"
)

const perfExecutable = "perf"

// Flame-graph rendering scripts, resolved via PATH.
const (
	stackCollapseScript = "stackcollapse-perf.pl"
	flameGraphScript    = "flamegraph.pl"
)

// ModeFromEnv reads the PERF / FLAMEGRAPH selectors from the environment.
func ModeFromEnv() (statRequested, flameRequested bool) {
	return os.Getenv(EnvStat) == "yes", os.Getenv(EnvFlameGraph) == "yes"
}

// ResolveMode turns the requested selectors into an effective mode by
// probing tool availability. A requested mode whose tools are missing or not
// permitted degrades to a warning, never an error. When both modes survive
// the probes, flame graphs win and exactly one conflict warning is recorded.
func ResolveMode(ctx context.Context, statRequested, flameRequested bool, launcher execx.Launcher, logger *slog.Logger) (Mode, []string) {
	if launcher == nil {
		launcher = execx.OSLauncher{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		logger.Warn(msg)
	}

	// Probe perf at most once even when both modes want it.
	var perfErr error
	perfProbed := false
	perfUsable := func() error {
		if !perfProbed {
			perfErr = canRunPerf(ctx, launcher)
			perfProbed = true
		}
		return perfErr
	}

	statOK := false
	if statRequested {
		if err := perfUsable(); err != nil {
			warn("cycle counting requested but perf is not usable: %v", err)
		} else {
			statOK = true
		}
	}

	flameOK := false
	if flameRequested {
		if err := perfUsable(); err != nil {
			warn("flame graphs requested but perf is not usable: %v", err)
		} else if err := canRenderFlameGraphs(launcher); err != nil {
			warn("flame graphs requested but rendering scripts are missing: %v", err)
		} else {
			flameOK = true
		}
	}

	// Availability decides first; only a genuine conflict warns.
	switch {
	case statOK && flameOK:
		warn("both cycle counting and flame graphs requested; flame graphs take precedence")
		return ModeFlameGraph, warnings
	case flameOK:
		return ModeFlameGraph, warnings
	case statOK:
		return ModeStat, warnings
	default:
		return ModeDisabled, warnings
	}
}

// canRunPerf checks that perf record actually works. The binary existing is
// not enough: kernel.perf_event_paranoid or a missing capability can still
// forbid sampling, and that only shows up when recording.
func canRunPerf(ctx context.Context, launcher execx.Launcher) error {
	path, err := launcher.LookPath(perfExecutable)
	if err != nil {
		return err
	}
	return launcher.Run(ctx, execx.Command{
		Path: path,
		Args: []string{"record", "--output=/dev/null", "--", "true"},
	})
}

func canRenderFlameGraphs(launcher execx.Launcher) error {
	for _, script := range []string{stackCollapseScript, flameGraphScript} {
		if _, err := launcher.LookPath(script); err != nil {
			return err
		}
	}
	return nil
}
