package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecall(t *testing.T) {
	t.Run("perfect results", func(t *testing.T) {
		got := [][]int{{1, 2}, {3, 4}}
		truth := [][]int32{{1, 2}, {4, 3}}

		r, err := Recall(got, truth, 2)
		require.NoError(t, err)
		assert.Equal(t, 1.0, r)
	})

	t.Run("half right", func(t *testing.T) {
		got := [][]int{{1, 2}, {3, 9}}
		truth := [][]int32{{1, 3}, {3, 4}}

		r, err := Recall(got, truth, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.5, r)
	})

	t.Run("truth wider than k is truncated", func(t *testing.T) {
		got := [][]int{{7}}
		truth := [][]int32{{1, 7, 8}}

		r, err := Recall(got, truth, 1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, r, "7 is not the single true neighbor")
	})

	t.Run("short result list loses the missing hits", func(t *testing.T) {
		got := [][]int{{1}}
		truth := [][]int32{{1, 2}}

		r, err := Recall(got, truth, 2)
		require.NoError(t, err)
		assert.Equal(t, 0.5, r)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		_, err := Recall([][]int{{1}}, nil, 1)
		require.Error(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		r, err := Recall(nil, nil, 10)
		require.NoError(t, err)
		assert.Zero(t, r)
	})
}
