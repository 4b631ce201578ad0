package index

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Hit is one matched iid with a relevance score. This engine has no
// term-frequency statistics (it stores postings, not a scored segment
// format), so every match scores 1.0; ranking across partitions in the
// scatter/gather merge operates on scores supplied by callers' own test
// fixtures, not on this engine's internal ranking.
type Hit struct {
	IID   uint32
	Score float64
}

// Filter evaluates query/def_fields: "*" returns no bitmap and the full
// live count; otherwise it returns the matching bitmap and its
// cardinality. It rejects a collection with no indexed scalar fields with
// SpaceNoIndex rather than silently returning an empty match set.
func (e *Engine) Filter(query string, defFields []string) (*roaring.Bitmap, uint64, error) {
	if err := e.schema.checkIndex(); err != nil {
		return nil, 0, err
	}
	if query == "*" {
		return nil, e.Count(), nil
	}
	bm := e.evaluate(query, defFields)
	return bm, bm.GetCardinality(), nil
}

// Query evaluates query/def_fields/size for a top-k search with count,
// returning hits in iid order (ties broken deterministically since every
// score is equal in this engine). It rejects a collection with no indexed
// scalar fields with SpaceNoIndex.
func (e *Engine) Query(query string, defFields []string, size int) ([]Hit, uint64, error) {
	if err := e.schema.checkIndex(); err != nil {
		return nil, 0, err
	}

	bm := e.evaluate(query, defFields)
	total := bm.GetCardinality()

	ids := bm.ToArray()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if size >= 0 && len(ids) > size {
		ids = ids[:size]
	}

	hits := make([]Hit, 0, len(ids))
	for _, id := range ids {
		hits = append(hits, Hit{IID: id, Score: 1.0})
	}
	return hits, total, nil
}

// evaluate is a minimal query language: "*" matches everything, space
// separated terms are ANDed, each term is either "field:value" (an exact
// match against one named scalar field) or a bare token matched against
// defFields with OR semantics. This is a deliberately small grammar: only
// the collector semantics (bitmap/top-k/count) are specified, not a
// concrete grammar, so filter/query/exist need just enough of one to drive
// them.
func (e *Engine) evaluate(query string, defFields []string) *roaring.Bitmap {
	query = strings.TrimSpace(query)
	if query == "" || query == "*" {
		e.mu.RLock()
		defer e.mu.RUnlock()
		return e.live.Clone()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var result *roaring.Bitmap
	for _, term := range strings.Fields(query) {
		var termBM *roaring.Bitmap
		if field, value, ok := strings.Cut(term, ":"); ok {
			if sf, ok := e.schema.fieldByName(field); ok {
				value = normalizeQueryTerm(sf.Kind, value)
			}
			termBM = e.postingsBitmapLocked(field, value)
		} else {
			termBM = roaring.New()
			for _, f := range defFields {
				termBM.Or(e.postingsBitmapLocked(f, strings.ToLower(term)))
			}
		}
		if result == nil {
			result = termBM
		} else {
			result = roaring.And(result, termBM)
		}
	}
	if result == nil {
		return roaring.New()
	}
	return result
}

func (e *Engine) postingsBitmapLocked(field, term string) *roaring.Bitmap {
	byTerm, ok := e.postings[field]
	if !ok {
		return roaring.New()
	}
	bm, ok := byTerm[term]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}
