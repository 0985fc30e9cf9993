package mariabench

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mariabench/engine"
)

var (
	// ErrConfiguration is returned when the environment, the metric or a
	// planned path cannot be used. Construction fails fast; nothing has been
	// started yet.
	ErrConfiguration = errors.New("invalid benchmark configuration")

	// ErrInitialization is returned when the database cannot be initialized
	// or the server cannot be launched or connected to. Fatal, no retry.
	ErrInitialization = errors.New("engine initialization failed")

	// ErrStartupTimeout is returned when the server socket does not appear
	// within the startup deadline.
	ErrStartupTimeout = errors.New("timeout waiting for engine startup")

	// ErrClosed is returned by operations invoked after Done.
	ErrClosed = errors.New("adapter is closed")
)

// translateError maps engine-layer failures onto the adapter's taxonomy so
// callers only match mariabench sentinels. The underlying error stays
// reachable via errors.Is / errors.Unwrap.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, engine.ErrInvalidConfig):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	case errors.Is(err, engine.ErrExecutableNotFound),
		errors.Is(err, engine.ErrInitFailed),
		errors.Is(err, engine.ErrStartFailed):
		return fmt.Errorf("%w: %w", ErrInitialization, err)
	case errors.Is(err, engine.ErrStartupTimeout):
		return fmt.Errorf("%w: %w", ErrStartupTimeout, err)
	}

	return err
}
