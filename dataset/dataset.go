// Package dataset loads and generates the vector datasets a benchmark run
// consumes: fvecs/ivecs files (optionally zstd- or gzip-compressed) and a
// deterministic synthetic generator with exact brute-force ground truth.
package dataset

import (
	"math/rand"
	"sort"
)

// Dataset is an in-memory benchmark dataset.
type Dataset struct {
	// Train are the vectors loaded into the engine.
	Train [][]float32

	// Test are the query vectors.
	Test [][]float32

	// Neighbors holds, per test vector, the ids of its true nearest train
	// vectors in ascending distance order, as ivecs files encode them.
	Neighbors [][]int32

	// Dim is the vector dimensionality.
	Dim int
}

// Synthetic generates n deterministic uniform vectors in [0, 1). The same
// seed always produces the same dataset.
func Synthetic(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := range out {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = rng.Float32()
		}
		out[i] = vec
	}
	return out
}

// TopK returns the indices of the k vectors nearest to query by Euclidean
// distance, closest first. Brute force: meant for ground truth and tests,
// not for serving.
func TopK(vectors [][]float32, query []float32, k int) []int {
	type candidate struct {
		idx  int
		dist float32
	}
	candidates := make([]candidate, len(vectors))
	for i, v := range vectors {
		candidates[i] = candidate{idx: i, dist: squaredL2(v, query)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].idx < candidates[j].idx
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]int, k)
	for i := range out {
		out[i] = candidates[i].idx
	}
	return out
}

// squaredL2 is the squared Euclidean distance; ordering is what matters, so
// the square root is skipped.
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
