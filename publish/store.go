// Package publish persists benchmark artifacts — raw profiles, rendered
// flame graphs, result files — to a configurable backing store, bundled as
// a single lz4-compressed tar archive per run.
package publish

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a write-oriented object store for benchmark artifacts.
type Store interface {
	// Put streams r to the object at key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader) error

	// Open opens the object at key for reading.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}
