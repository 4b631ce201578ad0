package simba

import (
	"sync/atomic"
	"testing"

	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/stretchr/testify/require"
)

// fakeProposer calls Apply synchronously with a strictly increasing index,
// simulating a single-node Raft group committing immediately. This keeps
// these tests scoped to the partition engine's write_type/apply semantics;
// real multi-replica commit behavior is exercised in pkg/raftbinding.
type fakeProposer struct {
	engine   *Engine
	index    atomic.Uint64
	lastData []byte
	lastIdx  uint64
}

func (p *fakeProposer) Propose(data []byte) (types.WriteResponse, error) {
	idx := p.index.Add(1)
	p.lastData = data
	p.lastIdx = idx
	return p.engine.Apply(idx, data)
}

func newTestEngine(t *testing.T) (*Engine, *fakeProposer) {
	t.Helper()
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	collection := &types.Collection{
		ID:               1,
		Name:             "widgets",
		Fields:           []types.Field{{Name: "n", Type: types.FieldInt}},
		ScalarFieldIndex: []string{"n"},
	}
	e, err := Open(collection, store, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(e.Stop)

	return e, &fakeProposer{engine: e}
}

func TestCreateThenCreateConflict(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, p)
	require.NoError(t, err)

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, p)
	require.Error(t, err)
	require.Equal(t, types.AlreadyExists, pserrors.CodeOf(err))

	count, err := e.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count.DBCount)
}

func TestUpsertOverwrite(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteUpsert,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, p)
	require.NoError(t, err)

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteUpsert,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":2}`)},
	}, p)
	require.NoError(t, err)

	src, err := e.Get("a", "")
	require.NoError(t, err)
	require.JSONEq(t, `{"n":2}`, string(src))
}

func TestDeleteIsIdempotent(t *testing.T) {
	e, p := newTestEngine(t)

	resp, err := e.Write(types.WriteRequest{
		WriteType: types.WriteDelete,
		Doc:       types.Document{ID: "z"},
	}, p)
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.Code)

	count, err := e.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(0), count.DBCount)
	require.Equal(t, uint64(1), p.index.Load())
}

func TestWriteRejectsWrongFieldType(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":"not a number"}`)},
	}, p)
	require.Error(t, err)
	require.Equal(t, types.FieldTypeErr, pserrors.CodeOf(err))
}

func TestWriteRejectsVectorDimensionMismatch(t *testing.T) {
	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	collection := &types.Collection{
		ID:     1,
		Name:   "widgets",
		Fields: []types.Field{{Name: "v", Type: types.FieldVector, VectorDim: 3}},
	}
	e, err := Open(collection, store, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(e.Stop)
	p := &fakeProposer{engine: e}

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"v":[1,2]}`)},
	}, p)
	require.Error(t, err)
	require.Equal(t, types.FieldTypeErr, pserrors.CodeOf(err))
}

func TestWriteSkipsMissingOrNullFields(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":null}`)},
	}, p)
	require.NoError(t, err)

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "b", Source: []byte(`{}`)},
	}, p)
	require.NoError(t, err)
}

func TestUpdateOnMissingKeyFails(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteUpdate,
		Doc:       types.Document{ID: "missing", Source: []byte(`{"n":1}`)},
	}, p)
	require.Error(t, err)
	require.Equal(t, types.NotFound, pserrors.CodeOf(err))
}

func TestPutThenGetThenDelete(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WritePut,
		Doc:       types.Document{ID: "a", SortKey: "s1", Source: []byte(`{"n":1}`)},
	}, p)
	require.NoError(t, err)

	src, err := e.Get("a", "s1")
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(src))

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteDelete,
		Doc:       types.Document{ID: "a", SortKey: "s1"},
	}, p)
	require.NoError(t, err)

	_, err = e.Get("a", "s1")
	require.Error(t, err)
	require.Equal(t, types.NotFound, pserrors.CodeOf(err))
}

func TestApplyReplayIsIdempotent(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, p)
	require.NoError(t, err)

	count, err := e.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count.DBCount)

	// Simulate hashicorp/raft redelivering the same committed entry on
	// restart replay, as it does whenever no snapshot covers it yet.
	resp, err := e.Apply(p.lastIdx, p.lastData)
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.Code)

	count, err = e.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count.DBCount, "replay must not re-mint an iid or strand the original row")
}

func TestApplyReplayAfterRestartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	indexDir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)

	collection := &types.Collection{
		ID:               1,
		Name:             "widgets",
		Fields:           []types.Field{{Name: "n", Type: types.FieldInt}},
		ScalarFieldIndex: []string{"n"},
	}
	e, err := Open(collection, store, indexDir)
	require.NoError(t, err)
	p := &fakeProposer{engine: e}

	_, err = e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, p)
	require.NoError(t, err)
	replayData, replayIdx := p.lastData, p.lastIdx
	e.Stop()
	require.NoError(t, store.Close())

	// Reopen against the same on-disk KV store, as pservice does after a
	// process restart, then replay the same committed entry the way
	// hashicorp/raft does when no snapshot exists yet.
	store2, err := kv.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { store2.Close() })
	e2, err := Open(collection, store2, indexDir)
	require.NoError(t, err)
	t.Cleanup(e2.Stop)

	resp, err := e2.Apply(replayIdx, replayData)
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.Code)

	count, err := e2.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count.DBCount, "replay after restart must not re-mint an iid")
}

func TestSnapshotRestoreRebuildsIndex(t *testing.T) {
	e, p := newTestEngine(t)

	_, err := e.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":7}`)},
	}, p)
	require.NoError(t, err)

	snap, err := e.Snapshot()
	require.NoError(t, err)

	e2, _ := newTestEngine(t)
	require.NoError(t, e2.Restore(snap))

	src, err := e2.Get("a", "")
	require.NoError(t, err)
	require.JSONEq(t, `{"n":7}`, string(src))

	count, err := e2.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), count.IndexCount)
}
