package execx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// FakeLauncher is a Launcher for tests. It records every command it is asked
// to run or start and never spawns a real process.
type FakeLauncher struct {
	mu      sync.Mutex
	runs    []Command
	started []*FakeProcess
	nextPID int

	// OnRun, when set, is consulted for every Run call and its error is
	// returned. The command's Stdin/Stdout are live, so hooks can emulate
	// pipeline stages.
	OnRun func(cmd Command) error

	// OnStart, when set, is invoked after a process handle is registered.
	// Hooks typically create side-effect files the code under test polls for.
	OnStart func(cmd Command, p *FakeProcess)

	// Missing lists command names LookPath reports as not found.
	Missing map[string]bool

	// ExitOnSignal makes every started process exit cleanly on the first
	// signal it receives.
	ExitOnSignal bool
}

// NewFakeLauncher returns a FakeLauncher whose processes exit on signal,
// which is what well-behaved tools do.
func NewFakeLauncher() *FakeLauncher {
	return &FakeLauncher{nextPID: 1000, ExitOnSignal: true}
}

// Run implements Launcher.
func (f *FakeLauncher) Run(ctx context.Context, cmd Command) error {
	f.mu.Lock()
	f.runs = append(f.runs, cmd)
	hook := f.OnRun
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if hook != nil {
		return hook(cmd)
	}
	return nil
}

// Start implements Launcher.
func (f *FakeLauncher) Start(cmd Command) (Process, error) {
	f.mu.Lock()
	f.nextPID++
	p := &FakeProcess{
		pid:          f.nextPID,
		cmd:          cmd,
		exited:       make(chan struct{}),
		exitOnSignal: f.ExitOnSignal,
	}
	f.started = append(f.started, p)
	hook := f.OnStart
	f.mu.Unlock()

	if hook != nil {
		hook(cmd, p)
	}
	return p, nil
}

// LookPath implements Launcher. Unknown names resolve to themselves unless
// listed in Missing.
func (f *FakeLauncher) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}
	return name, nil
}

// Runs returns a snapshot of the commands passed to Run.
func (f *FakeLauncher) Runs() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Command, len(f.runs))
	copy(out, f.runs)
	return out
}

// Started returns a snapshot of the processes created by Start.
func (f *FakeLauncher) Started() []*FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*FakeProcess, len(f.started))
	copy(out, f.started)
	return out
}

// FakeProcess is the Process implementation handed out by FakeLauncher.
type FakeProcess struct {
	pid          int
	cmd          Command
	exitOnSignal bool

	mu      sync.Mutex
	signals []os.Signal
	waitErr error
	done    bool
	exited  chan struct{}
}

// PID implements Process.
func (p *FakeProcess) PID() int { return p.pid }

// Command returns the command this process was started with.
func (p *FakeProcess) Command() Command { return p.cmd }

// Signal implements Process.
func (p *FakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return os.ErrProcessDone
	}
	p.signals = append(p.signals, sig)
	if p.exitOnSignal {
		p.exitLocked(nil)
	}
	return nil
}

// Wait implements Process.
func (p *FakeProcess) Wait() error {
	<-p.exited
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Exit marks the process as exited with the given error. Safe to call once.
func (p *FakeProcess) Exit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exitLocked(err)
}

func (p *FakeProcess) exitLocked(err error) {
	if p.done {
		return
	}
	p.done = true
	p.waitErr = err
	close(p.exited)
}

// Exited reports whether the process has exited.
func (p *FakeProcess) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Signals returns the signals received so far.
func (p *FakeProcess) Signals() []os.Signal {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]os.Signal, len(p.signals))
	copy(out, p.signals)
	return out
}
