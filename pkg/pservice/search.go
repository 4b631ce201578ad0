package pservice

import (
	"sort"

	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

type searchResult struct {
	resp types.SearchDocumentResponse
	err  error
}

// Search fans the request out to every named CPID concurrently and merges
// the hits, aborting the whole call on the first error from any partition
// — including a cpid not held locally — rather than soft-accumulating.
func (s *Service) Search(req types.SearchRequest) (types.SearchDocumentResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SearchFanoutDuration)

	if len(req.CPIDs) == 0 {
		return types.SearchDocumentResponse{}, pserrors.New(types.ParamError, "search requires at least one partition")
	}

	results := make(chan searchResult, len(req.CPIDs))

	for _, cpid := range req.CPIDs {
		cpid := cpid
		entry, ok := s.lookup(cpid)
		if !ok {
			return types.SearchDocumentResponse{}, pserrors.New(types.NotFound, "partition %d/%d not found on this node", cpid.CollectionID, cpid.PartitionID)
		}

		go func() {
			defer entry.release()
			part := req
			part.CPIDs = []types.CPID{cpid}
			resp, err := entry.engine.Search(part)
			results <- searchResult{resp: resp, err: err}
		}()
	}

	var total uint64
	hitSets := make([][]types.Hit, 0, len(req.CPIDs))
	for range req.CPIDs {
		r := <-results
		if r.err != nil {
			return types.SearchDocumentResponse{}, r.err
		}
		total += r.resp.Total
		hitSets = append(hitSets, r.resp.Hits)
	}

	return types.SearchDocumentResponse{
		Code:  types.Success,
		Total: total,
		Hits:  mergeHits(hitSets[0], hitSets[1:], req.Size),
	}, nil
}

// mergeHits concatenates rest onto first, sorts the result descending by
// score with ties broken by (collection_name, iid) so fan-out completion
// order never changes the result, and truncates to size.
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
