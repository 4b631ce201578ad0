package simba

import "github.com/cuemby/chubaodb-go/pkg/kv"

// Snapshot returns a point-in-time copy of the partition's KV contents, for
// pkg/raftbinding's FSM.Snapshot. The index is derived state and is not
// part of the snapshot; Restore rebuilds it.
func (e *Engine) Snapshot() (map[string][]byte, error) {
	return e.kv.Snapshot()
}

// Restore installs a previously captured KV snapshot, reprimes the in-memory
// max-iid counter from the restored M|max_iid, and rebuilds the index from
// the restored documents. Caller (the FSM) is expected to serialize this
// against concurrent Apply calls.
func (e *Engine) Restore(data map[string][]byte) error {
	e.mu.Lock()
	if err := e.kv.Load(data); err != nil {
		e.mu.Unlock()
		return e.fault(err)
	}

	e.maxIID.Store(kv.DecodeUint64(data[string(kv.MetaMaxIIDKey())]))
	e.mu.Unlock()

	return e.idx.Rebuild()
}
