package simba

import (
	"encoding/json"

	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/google/uuid"
)

// mutation is the encoding of a Raft log entry: {write_type, doc}, tagged
// with a proposal id. Matching a committed entry back to the caller that
// proposed it is done by raft's Future in pkg/raftbinding; no code reads
// the proposal id back. JSON is
// used for the same reason as types.EncodeDocument: the document's Source
// field is already JSON.
type mutation struct {
	ProposalID   uuid.UUID
	CollectionID uint32
	PartitionID  uint32
	WriteType    types.WriteType
	Doc          types.Document
}

// encodeMutation builds the bytes proposed to Raft.
func encodeMutation(proposalID uuid.UUID, req types.WriteRequest) ([]byte, error) {
	m := mutation{
		ProposalID:   proposalID,
		CollectionID: req.CollectionID,
		PartitionID:  req.PartitionID,
		WriteType:    req.WriteType,
		Doc:          req.Doc,
	}
	return json.Marshal(m)
}

// decodeMutation reverses encodeMutation.
func decodeMutation(b []byte) (mutation, error) {
	var m mutation
	err := json.Unmarshal(b, &m)
	return m, err
}
