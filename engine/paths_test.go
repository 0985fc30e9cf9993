package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPaths(t *testing.T) {
	ws := t.TempDir()

	paths, err := PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: ws})
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(paths.SocketPath) })

	assert.Equal(t, filepath.Join(ws, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(ws, "results"), paths.ResultsDir)
	assert.Equal(t, filepath.Join(ws, "mariadb.err"), paths.LogFile)
	assert.DirExists(t, paths.DataDir)
	assert.DirExists(t, paths.ResultsDir)

	// Planning again over existing directories must not fail.
	_, err = PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: ws})
	require.NoError(t, err)
}

func TestPlanPathsSocket(t *testing.T) {
	t.Run("stays under the sockaddr_un limit", func(t *testing.T) {
		// A workspace deeper than the socket path limit itself must not
		// leak into the socket location.
		ws := filepath.Join(t.TempDir(), strings.Repeat("n", 80), strings.Repeat("e", 80))

		paths, err := PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: ws})
		require.NoError(t, err)

		assert.LessOrEqual(t, len(paths.SocketPath), maxSocketPathLen)
		assert.Equal(t, os.TempDir(), filepath.Dir(paths.SocketPath))
	})

	t.Run("is unique per plan", func(t *testing.T) {
		ws := t.TempDir()

		first, err := PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: ws})
		require.NoError(t, err)
		second, err := PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: ws})
		require.NoError(t, err)

		assert.NotEqual(t, first.SocketPath, second.SocketPath)
	})

	t.Run("keeps the client-recognizable name shape", func(t *testing.T) {
		paths, err := PlanPaths(Config{RootDir: "/opt/mariadb", Workspace: t.TempDir()})
		require.NoError(t, err)

		base := filepath.Base(paths.SocketPath)
		assert.True(t, strings.HasPrefix(base, "mysql_"), base)
		assert.True(t, strings.HasSuffix(base, ".sock"), base)
	})
}
