package results

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Recall returns the mean recall@k: per query, the fraction of returned ids
// that appear among the true k nearest neighbors. got and truth are parallel
// per-query slices; truth rows longer than k are truncated, shorter ones
// shrink that query's denominator.
func Recall(got [][]int, truth [][]int32, k int) (float64, error) {
	if len(got) != len(truth) {
		return 0, fmt.Errorf("results: %d result lists against %d truth lists", len(got), len(truth))
	}
	if len(got) == 0 || k <= 0 {
		return 0, nil
	}

	var total float64
	for i := range got {
		ideal := roaring.New()
		limit := k
		if len(truth[i]) < limit {
			limit = len(truth[i])
		}
		if limit == 0 {
			continue
		}
		for _, id := range truth[i][:limit] {
			ideal.Add(uint32(id))
		}

		bound := k
		if len(got[i]) < bound {
			bound = len(got[i])
		}
		hits := 0
		for _, id := range got[i][:bound] {
			if id >= 0 && ideal.Contains(uint32(id)) {
				hits++
			}
		}
		total += float64(hits) / float64(limit)
	}
	return total / float64(len(got)), nil
}
