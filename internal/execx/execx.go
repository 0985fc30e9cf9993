// Package execx wraps the launching of external processes behind a small
// interface so that process-heavy code can be exercised in tests without
// spawning anything.
//
// Commands are built as explicit argument lists. There is no shell anywhere
// in this package; pipelines are assembled with io.Pipe.
package execx

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrWaitTimeout is returned by WaitTimeout when the process does not exit
// within the grace period.
var ErrWaitTimeout = errors.New("timeout waiting for process exit")

// Command describes a single external command invocation.
type Command struct {
	// Path is the executable path, or a bare name resolved via PATH.
	Path string

	// Args are the arguments, not including the command name itself.
	Args []string

	// Stdin, Stdout and Stderr are optional. When nil the child reads from
	// and writes to the null device.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command for logging. The result is informational only
// and is never handed to a shell.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Process is a handle to a started background command.
type Process interface {
	// PID returns the operating-system process ID.
	PID() int

	// Signal sends a signal to the process.
	Signal(sig os.Signal) error

	// Wait blocks until the process exits and returns its exit error, if any.
	// Wait must be called at most once.
	Wait() error
}

// Launcher starts external commands. The zero OSLauncher backs it with
// os/exec; tests substitute a FakeLauncher.
type Launcher interface {
	// Run starts the command and blocks until it exits. A non-zero exit
	// status is returned as an error. The command is killed when ctx is
	// canceled.
	Run(ctx context.Context, cmd Command) error

	// Start launches the command in the background.
	Start(cmd Command) (Process, error)

	// LookPath resolves a bare command name against PATH.
	LookPath(name string) (string, error)
}

// OSLauncher is the Launcher backed by os/exec.
type OSLauncher struct{}

// Run implements Launcher.
func (OSLauncher) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	return c.Run()
}

// Start implements Launcher.
func (OSLauncher) Start(cmd Command) (Process, error) {
	c := exec.Command(cmd.Path, cmd.Args...)
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	if err := c.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: c}, nil
}

// LookPath implements Launcher.
func (OSLauncher) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

type osProcess struct {
	cmd *exec.Cmd
}

func (p *osProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *osProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

func (p *osProcess) Wait() error {
	return p.cmd.Wait()
}

// WaitTimeout waits for the process to exit, giving up after grace and
// returning ErrWaitTimeout. The process is left running on timeout; the
// caller decides what to do with it.
func WaitTimeout(p Process, grace time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- p.Wait()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return ErrWaitTimeout
	}
}

// Pipeline runs the commands as a pipeline, connecting each stage's stdout
// to the next stage's stdin and the final stage's stdout to out. It blocks
// until every stage has exited and returns the first stage error, if any.
//
// This is the shell-free equivalent of `a | b | c > out`.
func Pipeline(ctx context.Context, launcher Launcher, out io.Writer, cmds ...Command) error {
	if len(cmds) == 0 {
		return errors.New("execx: empty pipeline")
	}

	g, ctx := errgroup.WithContext(ctx)

	var in io.Reader
	for i := range cmds {
		stage := cmds[i]
		stage.Stdin = in

		if i == len(cmds)-1 {
			stage.Stdout = out
			g.Go(func() error {
				return launcher.Run(ctx, stage)
			})
			break
		}

		pr, pw := io.Pipe()
		stage.Stdout = pw
		g.Go(func() error {
			err := launcher.Run(ctx, stage)
			// Close the write end so the next stage sees EOF (or the error).
			_ = pw.CloseWithError(err)
			return err
		})
		in = pr
	}

	return g.Wait()
}
