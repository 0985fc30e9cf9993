package profile

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/mariabench/internal/execx"
)

// Summary is the post-processed result for one artifact.
type Summary struct {
	Artifact Artifact

	// RenderedPath is the flame graph SVG, set when rendering succeeded.
	RenderedPath string

	// Cycles is the summed CPU-cycle count for stat artifacts.
	Cycles uint64

	// HasData reports whether any recognized cycle counter was found. A
	// stat file without one is a valid no-data result, not an error.
	HasData bool

	// Err records a per-artifact failure. Other artifacts are unaffected.
	Err error
}

// ReportBuilder turns raw profiler artifacts into flame graphs and cycle
// summaries. It is pure post-processing with no effect on the profiled
// process.
type ReportBuilder struct {
	launcher execx.Launcher
	logger   *slog.Logger
}

// BuilderOption configures a ReportBuilder.
type BuilderOption func(*ReportBuilder)

// WithBuilderLauncher substitutes the process launcher. Tests inject a fake.
func WithBuilderLauncher(l execx.Launcher) BuilderOption {
	return func(b *ReportBuilder) {
		if l != nil {
			b.launcher = l
		}
	}
}

// WithBuilderLogger sets the logger for rendering events.
func WithBuilderLogger(l *slog.Logger) BuilderOption {
	return func(b *ReportBuilder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewReportBuilder creates a ReportBuilder.
func NewReportBuilder(optFns ...BuilderOption) *ReportBuilder {
	b := &ReportBuilder{
		launcher: execx.OSLauncher{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(b)
		}
	}
	return b
}

// Build post-processes every artifact and returns one summary per artifact,
// in input order. Artifacts are independent, so they render concurrently; a
// failed artifact is recorded in its summary and skipped, never aborting the
// rest.
func (b *ReportBuilder) Build(ctx context.Context, artifacts []Artifact) []Summary {
	summaries := make([]Summary, len(artifacts))

	g, ctx := errgroup.WithContext(ctx)
	for i := range artifacts {
		i := i
		g.Go(func() error {
			summaries[i] = b.buildOne(ctx, artifacts[i])
			return nil
		})
	}
	_ = g.Wait()

	return summaries
}

func (b *ReportBuilder) buildOne(ctx context.Context, artifact Artifact) Summary {
	switch artifact.Mode {
	case ModeFlameGraph:
		return b.renderFlameGraph(ctx, artifact)
	case ModeStat:
		return b.summarizeStat(artifact)
	default:
		return Summary{Artifact: artifact}
	}
}

// renderFlameGraph runs perf script -i <artifact> | stackcollapse-perf.pl |
// flamegraph.pl and writes the result next to the artifact as <artifact>.svg.
func (b *ReportBuilder) renderFlameGraph(ctx context.Context, artifact Artifact) Summary {
	out := artifact.Path + ".svg"
	f, err := os.Create(out)
	if err != nil {
		return Summary{Artifact: artifact, Err: err}
	}

	pipeErr := execx.Pipeline(ctx, b.launcher, f,
		execx.Command{Path: perfExecutable, Args: []string{"script", "-i", artifact.Path}},
		execx.Command{Path: stackCollapseScript},
		execx.Command{Path: flameGraphScript},
	)
	closeErr := f.Close()

	if pipeErr != nil {
		// A partial SVG is worse than none.
		os.Remove(out)
		b.logger.Warn("flame graph rendering failed", "artifact", artifact.Path, "error", pipeErr)
		return Summary{Artifact: artifact, Err: pipeErr}
	}
	if closeErr != nil {
		return Summary{Artifact: artifact, Err: closeErr}
	}

	b.logger.Info("flame graph rendered", "artifact", artifact.Path, "svg", out)
	return Summary{Artifact: artifact, RenderedPath: out}
}

// cycleEvents are the counter names recognized as CPU cycles. Hybrid CPUs
// report per-core-type counters instead of a bare cycles event.
var cycleEvents = map[string]bool{
	"cycles":           true,
	"cpu_core/cycles/": true,
	"cpu_atom/cycles/": true,
}

func (b *ReportBuilder) summarizeStat(artifact Artifact) Summary {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return Summary{Artifact: artifact, Err: err}
	}
	defer f.Close()

	cycles, hasData, err := sumCycles(f)
	if err != nil {
		return Summary{Artifact: artifact, Err: err}
	}
	if hasData {
		b.logger.Info("cycles summed", "artifact", artifact.Path, "cycles", cycles)
	} else {
		b.logger.Warn("no cycle data in stat output", "artifact", artifact.Path)
	}
	return Summary{Artifact: artifact, Cycles: cycles, HasData: hasData}
}

// sumCycles parses perf stat -x, CSV output (value, unit, event, ...) and
// sums the values of recognized cycle counters. Comment lines and
// unparsable values ("<not counted>", "<not supported>") are skipped.
func sumCycles(r io.Reader) (uint64, bool, error) {
	var total uint64
	var seen bool

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 3 || !cycleEvents[fields[2]] {
			continue
		}
		n, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		total += n
		seen = true
	}
	if err := sc.Err(); err != nil {
		return 0, false, err
	}
	return total, seen, nil
}
