package simba

import (
	"github.com/cuemby/chubaodb-go/pkg/index"
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Apply decodes a committed Raft log entry and applies it to the KV store,
// advancing M|raft_index unconditionally. It is called by pkg/raftbinding's
// FSM in strict commit order on every replica, including during log replay
// (where there is no waiter to resolve).
//
// raftIndex <= lastApplied is a replayed entry this engine already applied
// before a restart: hashicorp/raft redelivers every committed entry from
// its log on open whenever no snapshot covers it yet (the common case
// below SnapshotThreshold commits), and without this guard a non-idempotent
// mutation (put/upsert/update) would re-mint a new iid and strand the row
// it already wrote. Such entries are a no-op: no KV mutation, no index
// event, same success response as the first time.
//
// Schema/type-coercion/write_type-conflict errors are returned as a
// *pserrors.Error but do not abort: the caller (the FSM) is expected to
// still record M|raft_index and move on, exactly as this function does
// internally before returning the error.
func (e *Engine) Apply(raftIndex uint64, data []byte) (types.WriteResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.State() == StateFaulted {
		return types.WriteResponse{}, pserrors.New(types.EngineFaulted, "partition engine faulted")
	}

	if raftIndex <= e.lastApplied.Load() {
		return types.WriteResponse{Code: types.Success}, nil
	}

	m, err := decodeMutation(data)
	if err != nil {
		if perr := e.kv.Put(kv.MetaRaftIndexKey(), kv.EncodeUint64(raftIndex)); perr != nil {
			return types.WriteResponse{}, e.fault(perr)
		}
		e.lastApplied.Store(raftIndex)
		return types.WriteResponse{}, pserrors.New(types.InternalErr, "decode mutation: %v", err)
	}

	priorRecord, priorFound, err := e.lookupExternalKey(m.Doc.ID, m.Doc.SortKey)
	if err != nil {
		return types.WriteResponse{}, e.fault(err)
	}
	priorIID := uint32(0)
	if priorFound {
		priorIID = priorRecord.IID
	}

	outcome, writeErr := e.applyWriteType(m, priorIID)
	if writeErr != nil {
		// Conflict/validation failure: still advance raft_index, no other
		// state change.
		if err := e.kv.Put(kv.MetaRaftIndexKey(), kv.EncodeUint64(raftIndex)); err != nil {
			return types.WriteResponse{}, e.fault(err)
		}
		e.lastApplied.Store(raftIndex)
		return types.WriteResponse{}, writeErr
	}

	if err := e.persist(raftIndex, m, priorIID, outcome.IID); err != nil {
		return types.WriteResponse{}, e.fault(err)
	}
	e.lastApplied.Store(raftIndex)

	if m.WriteType == types.WriteDelete {
		e.idx.Write(index.Event{Kind: index.EventDelete, Prior: priorIID})
	} else {
		e.idx.Write(index.Event{Kind: index.EventUpdate, Prior: priorIID, New: outcome.IID})
	}

	return outcome, nil
}

// applyWriteType enforces the create/put/update/upsert/delete conflict
// rules and decides the new iid (0 for a delete). It performs no I/O beyond
// the max-iid counter increment, which is purely in-process.
func (e *Engine) applyWriteType(m mutation, priorIID uint32) (types.WriteResponse, error) {
	switch m.WriteType {
	case types.WriteCreate:
		if priorIID != 0 {
			return types.WriteResponse{}, pserrors.New(types.AlreadyExists, "document %q already exists", m.Doc.ID)
		}
		return types.WriteResponse{Code: types.Success, IID: e.nextIID()}, nil

	case types.WriteUpdate:
		if priorIID == 0 {
			return types.WriteResponse{}, pserrors.New(types.NotFound, "document %q not found", m.Doc.ID)
		}
		return types.WriteResponse{Code: types.Success, IID: e.nextIID()}, nil

	case types.WritePut, types.WriteUpsert:
		return types.WriteResponse{Code: types.Success, IID: e.nextIID()}, nil

	case types.WriteDelete:
		if priorIID == 0 {
			return types.WriteResponse{Code: types.Success, IID: 0}, nil // no-op success
		}
		return types.WriteResponse{Code: types.Success, IID: 0}, nil

	default:
		return types.WriteResponse{}, pserrors.New(types.ParamError, "unknown write_type %v", m.WriteType)
	}
}

// persist batch-writes the KV mutation: either the new document + external
// key record (write) or the tombstone of the prior document (delete), plus
// the max-iid and raft-index bookkeeping, all atomically.
func (e *Engine) persist(raftIndex uint64, m mutation, priorIID, newIID uint32) error {
	var ops []kv.Op

	if m.WriteType == types.WriteDelete {
		if priorIID != 0 {
			ops = append(ops,
				kv.DeleteOp(kv.DocKey(priorIID)),
				kv.DeleteOp(kv.ExternalKey(m.Doc.ID, m.Doc.SortKey)),
			)
		}
	} else {
		encDoc, err := types.EncodeDocument(m.Doc)
		if err != nil {
			return err
		}
		encKey, err := types.EncodeExternalKeyRecord(types.ExternalKeyRecord{
			IID: newIID, ID: m.Doc.ID, SortKey: m.Doc.SortKey,
		})
		if err != nil {
			return err
		}
		ops = append(ops, kv.PutOp(kv.DocKey(newIID), encDoc))
		ops = append(ops, kv.PutOp(kv.ExternalKey(m.Doc.ID, m.Doc.SortKey), encKey))
		ops = append(ops, kv.PutOp(kv.MetaMaxIIDKey(), kv.EncodeUint64(uint64(newIID))))
	}

	ops = append(ops, kv.PutOp(kv.MetaRaftIndexKey(), kv.EncodeUint64(raftIndex)))

	return e.kv.Batch(ops)
}

func (e *Engine) nextIID() uint32 {
	return uint32(e.maxIID.Add(1))
}

// lookupExternalKey resolves K|hash(id,sort_key), detecting a hash
// collision by comparing the literal id/sort_key stored alongside the iid.
// On a collision (hash matches, literal keys don't),
// this is treated as "no prior" for write-semantics purposes and logged,
// rather than silently handing back the wrong document's iid.
func (e *Engine) lookupExternalKey(id, sortKey string) (types.ExternalKeyRecord, bool, error) {
	raw, found, err := e.kv.Get(kv.ExternalKey(id, sortKey))
	if err != nil {
		return types.ExternalKeyRecord{}, false, err
	}
	if !found {
		return types.ExternalKeyRecord{}, false, nil
	}
	rec, err := types.DecodeExternalKeyRecord(raw)
	if err != nil {
		return types.ExternalKeyRecord{}, false, err
	}
	if rec.ID != id || rec.SortKey != sortKey {
		log.WithComponent("simba").Warn().
			Str("requested_id", id).Str("requested_sort_key", sortKey).
			Str("stored_id", rec.ID).Str("stored_sort_key", rec.SortKey).
			Msg("external key hash collision detected, treating as no prior document")
		return types.ExternalKeyRecord{}, false, nil
	}
	return rec, true, nil
}
