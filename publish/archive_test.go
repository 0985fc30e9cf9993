package publish

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive(t *testing.T) {
	ctx := context.Background()

	artifactDir := t.TempDir()
	perfData := filepath.Join(artifactDir, "perf.data.searching.2026-08-22-10-30-00")
	svg := filepath.Join(artifactDir, "perf.data.searching.2026-08-22-10-30-00.svg")
	require.NoError(t, os.WriteFile(perfData, []byte("samples"), 0o644))
	require.NoError(t, os.WriteFile(svg, []byte("<svg/>"), 0o644))

	store := NewLocalStore(t.TempDir())

	t.Run("bundles and roundtrips", func(t *testing.T) {
		key, err := Archive(ctx, store, "run-1", []string{perfData, svg})
		require.NoError(t, err)
		assert.Equal(t, "run-1/artifacts.tar.lz4", key)

		extracted, err := Extract(ctx, store, key, t.TempDir())
		require.NoError(t, err)
		require.Len(t, extracted, 2)

		var names []string
		for _, path := range extracted {
			names = append(names, filepath.Base(path))
		}
		sort.Strings(names)
		assert.Equal(t, []string{
			"perf.data.searching.2026-08-22-10-30-00",
			"perf.data.searching.2026-08-22-10-30-00.svg",
		}, names)

		data, err := os.ReadFile(extracted[0])
		require.NoError(t, err)
		assert.Equal(t, "samples", string(data))
	})

	t.Run("skips artifacts that were never produced", func(t *testing.T) {
		missing := filepath.Join(artifactDir, "perf.data.never-flushed")

		key, err := Archive(ctx, store, "run-2", []string{perfData, missing})
		require.NoError(t, err)

		extracted, err := Extract(ctx, store, key, t.TempDir())
		require.NoError(t, err)
		assert.Len(t, extracted, 1)
	})

	t.Run("empty file list still produces an archive", func(t *testing.T) {
		key, err := Archive(ctx, store, "run-3", nil)
		require.NoError(t, err)

		extracted, err := Extract(ctx, store, key, t.TempDir())
		require.NoError(t, err)
		assert.Empty(t, extracted)
	})
}
