/*
Package raftbinding wires one hashicorp/raft group per partition on top of
a simba.Engine: Group owns the *raft.Raft instance, its BoltDB-backed
log/stable stores, file snapshot store, and TCP transport, and implements
simba.Proposer so Engine.Write can propose a mutation and block for its
committed outcome.

A proposal-id keyed waiter registry would be redundant machinery here:
raft.Raft.Apply's Future already provides the same coupling. fsm.Apply
returns the structured applyResult for a committed entry, and that value
comes back out of Future.Response() to the same call that proposed it. No
separate registry is layered on top.

Group generalizes a single cluster-wide Bootstrap()/Apply() pattern to one
Group per (collection_id, partition_id), identified by its CPID and given
its own data directory and transport, with its own leader-change and
log-replay hooks. CPID.RaftGroupID() is not used by this package.
*/
package raftbinding
