package resolver

import (
	"context"
	"strconv"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/hashicorp/raft"
)

// NodeResolver implements raft.ServerAddressProvider, resolving a
// raft.ServerID (a decimal node id, per types.Replica.NodeID) to a dialable
// address by asking the meta client, so Raft configurations only ever need
// to carry node ids, never addresses that can go stale.
type NodeResolver struct {
	client  meta.Client
	timeout time.Duration
}

// New builds a NodeResolver backed by client.
func New(client meta.Client) *NodeResolver {
	return &NodeResolver{client: client, timeout: 5 * time.Second}
}

// ServerAddr implements raft.ServerAddressProvider.
func (r *NodeResolver) ServerAddr(id raft.ServerID) (raft.ServerAddress, error) {
	nodeID, err := strconv.ParseUint(string(id), 10, 64)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	addr, err := r.client.NodeAddr(ctx, nodeID)
	if err != nil {
		return "", err
	}
	return raft.ServerAddress(addr), nil
}
