/*
Package simba implements the per-partition engine: a single-writer façade
over one partition's kv.Store and index.Engine. It is the Raft state
machine's apply target — pkg/raftbinding's FSM calls Engine.Apply for every
committed log entry, in strict commit order, and resolves the proposer's
Future with what Apply returns.

Engine generalizes a single cluster-wide propose-then-apply pattern to one
Raft group per (collection_id, partition_id), specialized to this engine's
write_type semantics table (create/put/update/upsert/delete).
*/
package simba
