package simba

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Search computes candidate iids for this one partition (intersecting the
// vector-query candidate set with the scalar filter bitmap when a vector
// query is present), fetches doc bytes, and returns a
// SearchDocumentResponse. Node-level fan-out across partitions is
// pkg/pservice's job.
func (e *Engine) Search(req types.SearchRequest) (types.SearchDocumentResponse, error) {
	if err := e.checkRunning(); err != nil {
		return types.SearchDocumentResponse{}, err
	}

	var candidateIIDs []uint32
	var total uint64

	if req.VectorQuery != nil {
		vectorCandidates := e.idx.VectorCandidates(req.VectorQuery.Field, req.VectorQuery.Vector)
		filterBM, _, err := e.idx.Filter(req.Query, req.DefFields)
		if err != nil {
			return types.SearchDocumentResponse{}, err
		}
		var intersection *roaring.Bitmap
		if filterBM == nil {
			intersection = vectorCandidates
		} else {
			intersection = roaring.And(vectorCandidates, filterBM)
		}
		total = intersection.GetCardinality()
		ids := intersection.ToArray()
		if req.Size >= 0 && len(ids) > req.Size {
			ids = ids[:req.Size]
		}
		candidateIIDs = ids
	} else {
		hits, t, err := e.idx.Query(req.Query, req.DefFields, req.Size)
		if err != nil {
			return types.SearchDocumentResponse{}, err
		}
		total = t
		for _, h := range hits {
			candidateIIDs = append(candidateIIDs, h.IID)
		}
	}

	out := types.SearchDocumentResponse{Code: types.Success, Total: total}
	for _, iid := range candidateIIDs {
		raw, found, err := e.kv.Get(kv.DocKey(iid))
		if err != nil {
			return types.SearchDocumentResponse{}, e.fault(err)
		}
		if !found {
			continue
		}
		doc, err := types.DecodeDocument(raw)
		if err != nil {
			continue
		}
		out.Hits = append(out.Hits, types.Hit{
			CollectionName: e.collection.Name,
			ID:             doc.ID,
			SortKey:        doc.SortKey,
			IID:            iid,
			Score:          1.0,
			DocBytes:       doc.Source,
		})
	}

	return out, nil
}
