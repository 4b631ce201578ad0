package raftbinding

import (
	"encoding/json"
	"io"

	"github.com/hashicorp/raft"
)

// fsmSnapshot implements raft.FSMSnapshot as a JSON encoding of the
// partition's KV contents, matching simba's own JSON-on-disk conventions
// (see kv and index packages) rather than inventing a binary framing.
type fsmSnapshot struct {
	data map[string][]byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	enc := json.NewEncoder(sink)
	if err := enc.Encode(s.data); err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}

func decodeSnapshot(r io.Reader) (map[string][]byte, error) {
	var data map[string][]byte
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}
