package pservice

import (
	"sync/atomic"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/raftbinding"
	"github.com/cuemby/chubaodb-go/pkg/simba"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Role tags a locally held partition as the Raft leader or a follower.
type Role int

const (
	RoleMember Role = iota
	RoleLeader
)

func (r Role) String() string {
	if r == RoleLeader {
		return "leader"
	}
	return "member"
}

// partitionEntry is one locally held partition: its engine, its Raft
// group, and the tagged role. inflight tracks concurrent callers holding a
// reference, polled by offload's drain loop before it releases the entry.
type partitionEntry struct {
	partition types.Partition
	collection *types.Collection
	engine    *simba.Engine
	group     *raftbinding.Group
	role      atomic.Int32
	inflight  atomic.Int64
}

func newPartitionEntry(partition types.Partition, collection *types.Collection, engine *simba.Engine, group *raftbinding.Group, role Role) *partitionEntry {
	e := &partitionEntry{partition: partition, collection: collection, engine: engine, group: group}
	e.role.Store(int32(role))
	metrics.PartitionsTotal.WithLabelValues(role.String()).Inc()
	return e
}

func (e *partitionEntry) Role() Role { return Role(e.role.Load()) }

// setRole swaps the tagged role, keeping the PartitionsTotal{role} gauges
// consistent with the swap.
func (e *partitionEntry) setRole(r Role) {
	old := Role(e.role.Swap(int32(r)))
	if old == r {
		return
	}
	metrics.PartitionsTotal.WithLabelValues(old.String()).Dec()
	metrics.PartitionsTotal.WithLabelValues(r.String()).Inc()
}

// forget releases this entry's PartitionsTotal accounting. Called once,
// by offload, after drain() confirms no caller still holds a reference.
func (e *partitionEntry) forget() {
	metrics.PartitionsTotal.WithLabelValues(e.Role().String()).Dec()
}

// acquire/release bracket one in-flight call against this partition, for
// offload's refcount-drain.
func (e *partitionEntry) acquire() { e.inflight.Add(1) }
func (e *partitionEntry) release() { e.inflight.Add(-1) }

// drain blocks, polling every 300ms, until no caller still holds a
// reference.
func (e *partitionEntry) drain() {
	for e.inflight.Load() > 0 {
		time.Sleep(300 * time.Millisecond)
	}
}
