package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthetic(t *testing.T) {
	t.Run("is deterministic per seed", func(t *testing.T) {
		first := Synthetic(100, 8, 42)
		second := Synthetic(100, 8, 42)
		other := Synthetic(100, 8, 7)

		assert.Equal(t, first, second)
		assert.NotEqual(t, first, other)
	})

	t.Run("shapes and range", func(t *testing.T) {
		vectors := Synthetic(10, 4, 1)
		require.Len(t, vectors, 10)
		for _, vec := range vectors {
			require.Len(t, vec, 4)
			for _, v := range vec {
				assert.GreaterOrEqual(t, v, float32(0))
				assert.Less(t, v, float32(1))
			}
		}
	})
}

func TestTopK(t *testing.T) {
	vectors := [][]float32{
		{0, 0},   // 0: distance 2 to query
		{1, 1},   // 1: distance 0
		{1, 2},   // 2: distance 1
		{10, 10}, // 3: far away
	}
	query := []float32{1, 1}

	t.Run("orders by ascending distance", func(t *testing.T) {
		assert.Equal(t, []int{1, 2, 0}, TopK(vectors, query, 3))
	})

	t.Run("caps k at the dataset size", func(t *testing.T) {
		assert.Len(t, TopK(vectors, query, 100), 4)
	})

	t.Run("breaks distance ties by index", func(t *testing.T) {
		tied := [][]float32{{2, 1}, {0, 1}, {1, 2}, {1, 0}}
		assert.Equal(t, []int{0, 1, 2, 3}, TopK(tied, query, 4))
	})
}
