/*
Package kv implements the partition-local key-value store: an opaque ordered
store with atomic write batches, prefix iteration, and snapshot reads, backed
by go.etcd.io/bbolt.

A partition's entire on-disk state lives in one bucket, keyed by byte strings
with disjoint prefixes:

  - "D|" + iid (big-endian uint32)           -> encoded Document
  - "K|" + hash(id, sort_key)                -> ExternalKeyRecord
  - "M|raft_index"                           -> last applied Raft log index
  - "M|max_iid"                              -> last assigned iid
  - "M|partition"                            -> serialized partition metadata

This single-bucket, disjoint-prefix layout trades a bucket-per-entity
scheme for one that supports prefix scans directly: document count and
index rebuild both depend on scanning the "D|" prefix range, which a
bucket-per-entity layout has no single range for.
*/
package kv
