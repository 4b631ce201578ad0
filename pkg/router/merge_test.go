package router

import (
	"testing"

	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestMergeHitsSortsDescendingByScore(t *testing.T) {
	merged := mergeHits([]types.Hit{{Score: 0.9}, {Score: 0.5}}, [][]types.Hit{{{Score: 0.8}}}, -1)
	require.Len(t, merged, 3)
	require.InDelta(t, 0.9, merged[0].Score, 0.0001)
	require.InDelta(t, 0.8, merged[1].Score, 0.0001)
	require.InDelta(t, 0.5, merged[2].Score, 0.0001)
}

func TestMergeHitsBreaksTiesByCollectionNameThenIID(t *testing.T) {
	a := []types.Hit{
		{CollectionName: "widgets", IID: 5, Score: 1.0},
		{CollectionName: "gadgets", IID: 2, Score: 1.0},
	}
	b := [][]types.Hit{{
		{CollectionName: "widgets", IID: 1, Score: 1.0},
	}}

	merged := mergeHits(a, b, -1)
	require.Len(t, merged, 3)
	require.Equal(t, "gadgets", merged[0].CollectionName)
	require.Equal(t, "widgets", merged[1].CollectionName)
	require.Equal(t, uint32(1), merged[1].IID)
	require.Equal(t, "widgets", merged[2].CollectionName)
	require.Equal(t, uint32(5), merged[2].IID)
}

func TestMergeHitsTruncatesToSize(t *testing.T) {
	merged := mergeHits([]types.Hit{{Score: 0.9}, {Score: 0.5}}, [][]types.Hit{{{Score: 0.8}}}, 1)
	require.Len(t, merged, 1)
	require.InDelta(t, 0.9, merged[0].Score, 0.0001)
}
