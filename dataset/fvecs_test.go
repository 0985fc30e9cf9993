package dataset

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFVecsRoundtrip(t *testing.T) {
	vectors := Synthetic(50, 16, 3)

	for _, name := range []string{"plain.fvecs", "packed.fvecs.zst", "packed.fvecs.gz"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			require.NoError(t, WriteFVecs(path, vectors))
			got, err := ReadFVecs(path)
			require.NoError(t, err)

			assert.Equal(t, vectors, got)
		})
	}
}

func TestIVecsRoundtrip(t *testing.T) {
	records := [][]int32{
		{3, 1, 4},
		{1, 5, 9},
		{2, 6, 5},
	}
	path := filepath.Join(t.TempDir(), "truth.ivecs.zst")

	require.NoError(t, WriteIVecs(path, records))
	got, err := ReadIVecs(path)
	require.NoError(t, err)

	assert.Equal(t, records, got)
}

func TestReadFVecsRejectsMalformedInput(t *testing.T) {
	t.Run("truncated vector", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "short.fvecs")
		buf := make([]byte, 4+4) // promises 4 floats, carries 1
		binary.LittleEndian.PutUint32(buf, 4)
		require.NoError(t, os.WriteFile(path, buf, 0o644))

		_, err := ReadFVecs(path)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("inconsistent dimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mixed.fvecs")
		f, err := os.Create(path)
		require.NoError(t, err)
		for _, dim := range []uint32{2, 3} {
			var header [4]byte
			binary.LittleEndian.PutUint32(header[:], dim)
			_, err = f.Write(header[:])
			require.NoError(t, err)
			_, err = f.Write(make([]byte, 4*dim))
			require.NoError(t, err)
		}
		require.NoError(t, f.Close())

		_, err = ReadFVecs(path)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("zero dimension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "zero.fvecs")
		require.NoError(t, os.WriteFile(path, make([]byte, 4), 0o644))

		_, err := ReadFVecs(path)
		require.ErrorIs(t, err, ErrFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFVecs(filepath.Join(t.TempDir(), "nope.fvecs"))
		require.Error(t, err)
	})
}

func TestReadFVecsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.fvecs")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	got, err := ReadFVecs(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteFVecsRejectsRaggedInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragged.fvecs")
	err := WriteFVecs(path, [][]float32{{1, 2}, {1, 2, 3}})
	require.ErrorIs(t, err, ErrFormat)
}
