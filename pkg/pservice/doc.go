/*
Package pservice implements the Partition Service: the per-node registry of
locally held partitions, keyed by CPID, each tagged Leader or Member, and
the write/get/count/search/command dispatch that routes a request to the
right partition's simba.Engine + raftbinding.Group.

A mutex-guarded map holds the registry, plus a separate coarse lock that
serializes InitPartition/OffloadPartition; offload busy-waits on a refcount
drain before releasing a partition's resources, and ApplyLeaderChange/
TakeHeartbeat swap a partition's tagged Role before reporting it.
*/
package pservice
