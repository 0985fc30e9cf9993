package publish

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	t.Run("put and open", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "run-1/results.csv", strings.NewReader("a,b,c\n")))

		r, err := store.Open(ctx, "run-1/results.csv")
		require.NoError(t, err)
		defer r.Close()

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "a,b,c\n", string(data))
	})

	t.Run("put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "run-1/results.csv", strings.NewReader("new")))

		r, err := store.Open(ctx, "run-1/results.csv")
		require.NoError(t, err)
		defer r.Close()

		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("open missing", func(t *testing.T) {
		_, err := store.Open(ctx, "run-1/nope")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list by prefix", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "run-2/b.svg", strings.NewReader("svg")))
		require.NoError(t, store.Put(ctx, "run-2/a.svg", strings.NewReader("svg")))

		keys, err := store.List(ctx, "run-2/")
		require.NoError(t, err)
		assert.Equal(t, []string{"run-2/a.svg", "run-2/b.svg"}, keys)
	})

	t.Run("list on an empty store", func(t *testing.T) {
		empty := NewLocalStore(t.TempDir() + "/never-created")
		keys, err := empty.List(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})
}
