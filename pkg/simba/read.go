package simba

import (
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Get looks up a document by its external composite key. It is served on
// all replicas (Leader or Member).
func (e *Engine) Get(id, sortKey string) ([]byte, error) {
	if err := e.checkRunning(); err != nil {
		return nil, err
	}

	rec, found, err := e.lookupExternalKey(id, sortKey)
	if err != nil {
		return nil, e.fault(err)
	}
	if !found {
		return nil, pserrors.New(types.NotFound, "document (%q,%q) not found", id, sortKey)
	}

	raw, found, err := e.kv.Get(kv.DocKey(rec.IID))
	if err != nil {
		return nil, e.fault(err)
	}
	if !found {
		return nil, pserrors.New(types.NotFound, "document (%q,%q) not found", id, sortKey)
	}

	doc, err := types.DecodeDocument(raw)
	if err != nil {
		return nil, pserrors.New(types.InternalErr, "decode document: %v", err)
	}
	return doc.Source, nil
}

// Count reports db_count by scanning the "D|" prefix, index_count from the
// index engine, and estimate as the cheaper (in-memory) of the two.
func (e *Engine) Count() (types.CountResponse, error) {
	if err := e.checkRunning(); err != nil {
		return types.CountResponse{}, err
	}

	var dbCount uint64
	err := e.kv.PrefixIterate(kv.DocPrefix(), func(key, value []byte) (bool, error) {
		dbCount++
		return true, nil
	})
	if err != nil {
		return types.CountResponse{}, e.fault(err)
	}

	indexCount := e.idx.Count()

	return types.CountResponse{
		Code:       types.Success,
		Estimate:   indexCount,
		IndexCount: indexCount,
		DBCount:    dbCount,
	}, nil
}
