package meta

import (
	"context"

	"github.com/cuemby/chubaodb-go/pkg/types"
)

// NodeInfo is what a pserver sends the master on startup.
type NodeInfo struct {
	IP      string
	RPCPort uint32
}

// WritePartition is one partition the master assigns a node on registration.
type WritePartition struct {
	CollectionID uint32
	PartitionID  uint32
	Replicas     []types.Replica
	Version      uint64
}

// RegisterResult is the master's response to Register: the node id it
// assigned and the set of partitions this node must init_partition.
type RegisterResult struct {
	NodeID          uint64
	WritePartitions []WritePartition
}

// Heartbeat is what TakeHeartbeat reports to the master via PutPServer.
type Heartbeat struct {
	NodeID  uint64
	IP      string
	RPCPort uint32
}

// Client is the Meta service surface a pserver node depends on: register on
// startup, resolve collection/partition metadata, report liveness, and
// resolve a node id to a dialable address for Raft transport.
type Client interface {
	Register(ctx context.Context, info NodeInfo) (RegisterResult, error)
	GetCollectionByID(ctx context.Context, id uint32) (*types.Collection, error)
	// GetCollectionByName resolves the collection a router request names in
	// its URL path; router requests never carry a collection id.
	GetCollectionByName(ctx context.Context, name string) (*types.Collection, error)
	GetPartition(ctx context.Context, cpid types.CPID) (*types.Partition, error)
	// ListPartitions returns every partition of a collection, for router
	// scatter operations (search, count) that must fan out to all of them.
	ListPartitions(ctx context.Context, collectionID uint32) ([]types.Partition, error)
	PutPServer(ctx context.Context, hb Heartbeat) error
	NodeAddr(ctx context.Context, nodeID uint64) (string, error)
}
