package index

import (
	"encoding/json"
	"math"

	"github.com/RoaringBitmap/roaring"
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// VectorCandidates treats the vector index as a separate candidate source,
// intersected with the scalar filter bitmap before KV fetch. No ANN
// structure is built here (out of scope); this is a brute-force
// cosine-similarity scan over every live document's vector field, correct
// but not performant — see DESIGN.md's Open Questions for the rationale.
func (e *Engine) VectorCandidates(field string, query []float32) *roaring.Bitmap {
	e.mu.RLock()
	live := e.live.Clone()
	e.mu.RUnlock()

	out := roaring.New()
	it := live.Iterator()
	for it.HasNext() {
		iid := it.Next()
		raw, found, err := e.kv.Get(kv.DocKey(iid))
		if err != nil || !found {
			continue
		}
		doc, err := types.DecodeDocument(raw)
		if err != nil {
			continue
		}
		var src map[string]interface{}
		if err := json.Unmarshal(doc.Source, &src); err != nil {
			continue
		}
		raw, ok := src[field].([]interface{})
		if !ok {
			continue
		}
		vec := make([]float32, 0, len(raw))
		for _, v := range raw {
			f, ok := v.(float64)
			if !ok {
				continue
			}
			vec = append(vec, float32(f))
		}
		if cosineSimilarity(vec, query) > 0 {
			out.Add(iid)
		}
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
