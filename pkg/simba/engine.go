package simba

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/cuemby/chubaodb-go/pkg/index"
	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/google/uuid"
)

// State is the partition engine's lifecycle state.
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateReleased
	StateFaulted
)

// Proposer abstracts the Raft binding's propose-and-await-commit step:
// Propose blocks until the local apply observes this proposal or a
// timeout elapses, returning the outcome the apply path recorded for it.
type Proposer interface {
	Propose(data []byte) (types.WriteResponse, error)
}

// Engine is the per-partition façade over one partition's KV store and
// index engine.
type Engine struct {
	collection *types.Collection
	kv         kv.Store
	idx        *index.Engine

	state  atomic.Int32
	mu     sync.Mutex // serializes Apply; Raft already guarantees one caller at a time, this is belt-and-suspenders
	maxIID atomic.Uint64

	// lastApplied is primed from M|raft_index at Open and guards Apply
	// against re-applying entries hashicorp/raft redelivers on replay
	// after a restart with no snapshot (the common case below
	// SnapshotThreshold commits): without it, Apply would re-mint iids
	// and strand the documents it already wrote before the restart.
	lastApplied atomic.Uint64
}

// Open opens (or creates) the index engine for one partition at indexDir
// over an already-open KV store, and primes the in-memory max-iid counter
// from M|max_iid.
func Open(collection *types.Collection, store kv.Store, indexDir string) (*Engine, error) {
	idx, err := index.Open(collection, store, indexDir)
	if err != nil {
		return nil, err
	}

	e := &Engine{collection: collection, kv: store, idx: idx}

	raw, found, err := store.Get(kv.MetaMaxIIDKey())
	if err != nil {
		return nil, err
	}
	if found {
		e.maxIID.Store(kv.DecodeUint64(raw))
	}

	rawIndex, found, err := store.Get(kv.MetaRaftIndexKey())
	if err != nil {
		return nil, err
	}
	if found {
		e.lastApplied.Store(kv.DecodeUint64(rawIndex))
	}

	return e, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) checkRunning() error {
	switch e.State() {
	case StateRunning:
		return nil
	case StateFaulted:
		return pserrors.New(types.EngineFaulted, "partition engine faulted")
	default:
		return pserrors.New(types.EngineStopped, "partition engine stopped")
	}
}

func (e *Engine) fault(err error) error {
	e.state.Store(int32(StateFaulted))
	return pserrors.New(types.EngineFaulted, "kv I/O error: %v", err)
}

// Write validates the request and proposes it to Raft via proposer,
// blocking until the local apply resolves the outcome.
func (e *Engine) Write(req types.WriteRequest, proposer Proposer) (types.WriteResponse, error) {
	if err := e.checkRunning(); err != nil {
		return types.WriteResponse{}, err
	}
	if err := e.validate(req); err != nil {
		return types.WriteResponse{}, err
	}

	data, err := encodeMutation(uuid.New(), req)
	if err != nil {
		return types.WriteResponse{}, pserrors.New(types.InternalErr, "encode mutation: %v", err)
	}

	timer := metrics.NewTimer()
	resp, err := proposer.Propose(data)
	timer.ObserveDurationVec(metrics.WriteDuration, req.WriteType.String())
	return resp, err
}

// validate checks the document id is present, the source decodes as a JSON
// object, and every declared field present in it is type-coercible (a
// vector field's length must also match VectorDim). A field absent or
// null in the source is skipped here exactly as pkg/index's projection
// skips it, not treated as a validation failure: "mandatory" in this
// schema means the document id, not every declared field.
func (e *Engine) validate(req types.WriteRequest) error {
	if req.Doc.ID == "" && req.WriteType != types.WriteDelete {
		return pserrors.New(types.ParamError, "document id is required")
	}
	if req.WriteType == types.WriteDelete || len(req.Doc.Source) == 0 {
		return nil
	}

	var src map[string]interface{}
	if err := json.Unmarshal(req.Doc.Source, &src); err != nil {
		return pserrors.New(types.FieldTypeErr, "document source must be a JSON object: %v", err)
	}

	for _, f := range e.collection.Fields {
		val, present := src[f.Name]
		if !present || val == nil {
			continue
		}
		if f.Array {
			arr, ok := val.([]interface{})
			if !ok {
				return pserrors.New(types.FieldTypeErr, "field %q declared as array but value is not a list", f.Name)
			}
			for _, elem := range arr {
				if elem == nil {
					continue
				}
				if err := checkFieldType(f, elem); err != nil {
					return err
				}
			}
			continue
		}
		if err := checkFieldType(f, val); err != nil {
			return err
		}
	}
	return nil
}

// checkFieldType checks one scalar JSON value against its declared field
// type, including that a vector's length matches VectorDim when the
// collection declares one.
func checkFieldType(f types.Field, val interface{}) error {
	switch f.Type {
	case types.FieldInt, types.FieldFloat:
		if _, ok := val.(float64); !ok {
			return pserrors.New(types.FieldTypeErr, "field %q must be numeric", f.Name)
		}
	case types.FieldString, types.FieldText:
		if _, ok := val.(string); !ok {
			return pserrors.New(types.FieldTypeErr, "field %q must be a string", f.Name)
		}
	case types.FieldVector:
		arr, ok := val.([]interface{})
		if !ok {
			return pserrors.New(types.FieldTypeErr, "field %q must be a numeric array", f.Name)
		}
		if f.VectorDim > 0 && len(arr) != f.VectorDim {
			return pserrors.New(types.FieldTypeErr, "field %q has dimension %d, expected %d", f.Name, len(arr), f.VectorDim)
		}
		for _, elem := range arr {
			if _, ok := elem.(float64); !ok {
				return pserrors.New(types.FieldTypeErr, "field %q vector components must be numeric", f.Name)
			}
		}
	case types.FieldBytes:
		if _, ok := val.(string); !ok {
			return pserrors.New(types.FieldTypeErr, "field %q must be base64-encoded bytes", f.Name)
		}
	}
	return nil
}

// Flush triggers a KV sync (implicit in bbolt's own fsync-on-commit) and,
// under the index engine's rate limiting, an index commit.
func (e *Engine) Flush() error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	return e.idx.Flush()
}

// Stop transitions the engine to Stopping and tears down the index worker.
func (e *Engine) Stop() {
	e.state.Store(int32(StateStopping))
	e.idx.Stop()
}

// Release transitions the engine to Released and closes the KV store.
// Callers (pkg/pservice) must ensure no outstanding references remain
// before calling Release.
func (e *Engine) Release() error {
	e.idx.Release()
	err := e.kv.Close()
	e.state.Store(int32(StateReleased))
	return err
}
