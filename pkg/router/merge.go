package router

import (
	"sort"

	"github.com/cuemby/chubaodb-go/pkg/types"
)

// mergeHits merges the per-node hit sets of a scatter/gather search into one
// descending-by-score list, ties broken by (collection_name, iid) so
// fan-out completion order never changes the result, truncated to size —
// the same shape pkg/pservice uses to merge per-partition hits within a
// node.
func mergeHits(first []types.Hit, rest [][]types.Hit, size int) []types.Hit {
	merged := append([]types.Hit(nil), first...)
	for _, hits := range rest {
		merged = append(merged, hits...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CollectionName != b.CollectionName {
			return a.CollectionName < b.CollectionName
		}
		return a.IID < b.IID
	})
	if size >= 0 && len(merged) > size {
		merged = merged[:size]
	}

	return merged
}
