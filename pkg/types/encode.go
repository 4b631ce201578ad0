package types

import "encoding/json"

// EncodeDocument is the stable encoding stored at "D|iid". JSON is used
// because the document's own Source field is already an opaque JSON blob;
// wrapping it in one more JSON envelope keeps the on-disk format readable
// and avoids hand-rolling a binary framing.
func EncodeDocument(d Document) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeDocument reverses EncodeDocument.
func DecodeDocument(b []byte) (Document, error) {
	var d Document
	err := json.Unmarshal(b, &d)
	return d, err
}

// ExternalKeyRecord is the value stored at "K|hash(id,sort_key)". It carries
// the literal id/sort_key alongside the iid so that a hash collision is
// detectable instead of silently resolving to the wrong document.
type ExternalKeyRecord struct {
	IID     uint32
	ID      string
	SortKey string
}

// EncodeExternalKeyRecord encodes an ExternalKeyRecord for storage.
func EncodeExternalKeyRecord(r ExternalKeyRecord) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeExternalKeyRecord reverses EncodeExternalKeyRecord.
func DecodeExternalKeyRecord(b []byte) (ExternalKeyRecord, error) {
	var r ExternalKeyRecord
	err := json.Unmarshal(b, &r)
	return r, err
}

// EncodePartition encodes the value stored at "M|partition": the
// partition descriptor this node last initialized it with, kept local to
// the partition's own KV store rather than only in the meta service.
func EncodePartition(p Partition) ([]byte, error) {
	return json.Marshal(p)
}

// DecodePartition reverses EncodePartition.
func DecodePartition(b []byte) (Partition, error) {
	var p Partition
	err := json.Unmarshal(b, &p)
	return p, err
}
