package kv

// Store is the opaque ordered key-value contract the rest of the partition
// server depends on. Documents, external-key lookups, and per-partition
// metadata all live behind this one interface; the storage engine below
// this line is an implementation detail callers don't need to see.
type Store interface {
	// Get returns the value stored at key, or (nil, false) if absent.
	Get(key []byte) ([]byte, bool, error)

	// Put writes a single key/value pair.
	Put(key, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// Batch applies every op atomically: either all of them are durable or
	// none are.
	Batch(ops []Op) error

	// PrefixIterate calls fn for every key with the given prefix, in
	// ascending key order, until fn returns false or an error.
	PrefixIterate(prefix []byte, fn func(key, value []byte) (bool, error)) error

	// Snapshot returns a point-in-time copy of every key/value pair in the
	// store, for offload/load byte-equality checks and crash-recovery tests.
	Snapshot() (map[string][]byte, error)

	// Load atomically replaces the entire store's contents with data. Used
	// by pkg/raftbinding's FSM.Restore when installing a Raft snapshot.
	Load(data map[string][]byte) error

	// Close releases the underlying database file.
	Close() error
}

// OpKind distinguishes a Put from a Delete inside a Batch.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one atomic batch operation.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte // ignored when Kind == OpDelete
}

// PutOp builds a Put Op.
func PutOp(key, value []byte) Op { return Op{Kind: OpPut, Key: key, Value: value} }

// DeleteOp builds a Delete Op.
func DeleteOp(key []byte) Op { return Op{Kind: OpDelete, Key: key} }
