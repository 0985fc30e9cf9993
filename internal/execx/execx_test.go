package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	cmd := Command{Path: "perf", Args: []string{"record", "-p", "42"}}
	assert.Equal(t, "perf record -p 42", cmd.String())
}

func TestFakeLauncher_RecordsRuns(t *testing.T) {
	f := NewFakeLauncher()

	err := f.Run(context.Background(), Command{Path: "true"})
	require.NoError(t, err)

	runs := f.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, "true", runs[0].Path)
}

func TestFakeLauncher_LookPath(t *testing.T) {
	f := NewFakeLauncher()
	f.Missing = map[string]bool{"flamegraph.pl": true}

	_, err := f.LookPath("perf")
	require.NoError(t, err)

	_, err = f.LookPath("flamegraph.pl")
	require.Error(t, err)
}

func TestFakeProcess_SignalExit(t *testing.T) {
	f := NewFakeLauncher()

	p, err := f.Start(Command{Path: "sleeper"})
	require.NoError(t, err)

	fp := p.(*FakeProcess)
	assert.False(t, fp.Exited())

	require.NoError(t, p.Signal(os.Interrupt))
	assert.True(t, fp.Exited())
	assert.Equal(t, []os.Signal{os.Interrupt}, fp.Signals())

	// Signaling an exited process mirrors the os behavior.
	assert.ErrorIs(t, p.Signal(os.Interrupt), os.ErrProcessDone)
}

func TestWaitTimeout(t *testing.T) {
	t.Run("exited", func(t *testing.T) {
		f := NewFakeLauncher()
		p, err := f.Start(Command{Path: "x"})
		require.NoError(t, err)

		p.(*FakeProcess).Exit(nil)
		assert.NoError(t, WaitTimeout(p, time.Second))
	})

	t.Run("timeout", func(t *testing.T) {
		f := NewFakeLauncher()
		f.ExitOnSignal = false
		p, err := f.Start(Command{Path: "x"})
		require.NoError(t, err)

		err = WaitTimeout(p, 10*time.Millisecond)
		assert.ErrorIs(t, err, ErrWaitTimeout)
	})
}

func TestPipeline(t *testing.T) {
	f := NewFakeLauncher()
	f.OnRun = func(cmd Command) error {
		switch cmd.Path {
		case "produce":
			_, err := io.WriteString(cmd.Stdout, "hello")
			return err
		case "upper":
			b, err := io.ReadAll(cmd.Stdin)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.Stdout, strings.ToUpper(string(b)))
			return err
		default:
			return errors.New("unexpected stage")
		}
	}

	var out bytes.Buffer
	err := Pipeline(context.Background(), f, &out,
		Command{Path: "produce"},
		Command{Path: "upper"},
	)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out.String())
}

func TestPipeline_StageFailure(t *testing.T) {
	f := NewFakeLauncher()
	stageErr := errors.New("boom")
	f.OnRun = func(cmd Command) error {
		if cmd.Path == "produce" {
			return stageErr
		}
		// Downstream stage drains whatever it is given.
		_, _ = io.Copy(io.Discard, cmd.Stdin)
		return nil
	}

	err := Pipeline(context.Background(), f, io.Discard,
		Command{Path: "produce"},
		Command{Path: "consume"},
	)
	assert.ErrorIs(t, err, stageErr)
}

func TestPipeline_Empty(t *testing.T) {
	err := Pipeline(context.Background(), NewFakeLauncher(), io.Discard)
	assert.Error(t, err)
}
