package raftbinding

import (
	"io"

	"github.com/cuemby/chubaodb-go/pkg/simba"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/hashicorp/raft"
)

// applyResult is the structured outcome of one committed log entry: it is
// what fsm.Apply returns, and therefore what raft.Raft.Apply's
// Future.Response() hands back to the proposer.
type applyResult struct {
	Resp types.WriteResponse
	Err  error
}

// fsm adapts simba.Engine to raft.FSM. Every replica in a partition's group
// runs fsm.Apply for every committed entry, in log order; only the leader's
// caller is actually waiting on the Future's response, but followers apply
// exactly the same way (they just discard the return value).
type fsm struct {
	engine *simba.Engine
}

func newFSM(engine *simba.Engine) *fsm {
	return &fsm{engine: engine}
}

// Apply implements raft.FSM.
func (f *fsm) Apply(l *raft.Log) interface{} {
	resp, err := f.engine.Apply(l.Index, l.Data)
	return applyResult{Resp: resp, Err: err}
}

// Snapshot implements raft.FSM, capturing the partition's KV contents.
func (f *fsm) Snapshot() (raft.FSMSnapshot, error) {
	data, err := f.engine.Snapshot()
	if err != nil {
		return nil, err
	}
	return &fsmSnapshot{data: data}, nil
}

// Restore implements raft.FSM, installing a previously captured snapshot
// and rebuilding the index from it during crash recovery.
func (f *fsm) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	data, err := decodeSnapshot(rc)
	if err != nil {
		return err
	}
	return f.engine.Restore(data)
}
