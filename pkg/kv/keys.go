package kv

import (
	"encoding/binary"
	"hash/fnv"
)

var (
	prefixDoc  = []byte("D|")
	prefixKey  = []byte("K|")
	prefixMeta = []byte("M|")

	metaRaftIndex = append(append([]byte{}, prefixMeta...), []byte("raft_index")...)
	metaMaxIID    = append(append([]byte{}, prefixMeta...), []byte("max_iid")...)
	metaPartition = append(append([]byte{}, prefixMeta...), []byte("partition")...)
)

// DocKey builds the "D|iid" key for a document row.
func DocKey(iid uint32) []byte {
	k := make([]byte, len(prefixDoc)+4)
	copy(k, prefixDoc)
	binary.BigEndian.PutUint32(k[len(prefixDoc):], iid)
	return k
}

// DocPrefix returns the shared prefix of every document key, for
// PrefixIterate-based scans (count, index rebuild).
func DocPrefix() []byte {
	return append([]byte{}, prefixDoc...)
}

// IIDFromDocKey extracts the iid encoded in a "D|iid" key produced by DocKey.
func IIDFromDocKey(key []byte) uint32 {
	return binary.BigEndian.Uint32(key[len(prefixDoc):])
}

// ExternalHash hashes the external composite key (id, sort_key) down to a
// fixed-width value for the "K|" lookup key, using 64-bit FNV-1a from the
// standard library's hash/fnv. Collisions must be
// treated as detectable rather than impossible, which is why
// ExternalKeyRecord (see below) stores the literal id/sort_key alongside
// the iid.
func ExternalHash(id, sortKey string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(sortKey))
	return h.Sum64()
}

// ExternalKey builds the "K|hash(id,sort_key)" lookup key.
func ExternalKey(id, sortKey string) []byte {
	k := make([]byte, len(prefixKey)+8)
	copy(k, prefixKey)
	binary.BigEndian.PutUint64(k[len(prefixKey):], ExternalHash(id, sortKey))
	return k
}

// MetaRaftIndexKey is "M|raft_index".
func MetaRaftIndexKey() []byte { return append([]byte{}, metaRaftIndex...) }

// MetaMaxIIDKey is "M|max_iid".
func MetaMaxIIDKey() []byte { return append([]byte{}, metaMaxIID...) }

// MetaPartitionKey is "M|partition".
func MetaPartitionKey() []byte { return append([]byte{}, metaPartition...) }

// EncodeUint64 big-endian encodes a uint64 meta value (raft index, max iid).
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 decodes a big-endian uint64 meta value. Returns 0 if b is
// empty, matching "never written yet" semantics for raft_index/max_iid.
func DecodeUint64(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
