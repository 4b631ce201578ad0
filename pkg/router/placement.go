package router

import (
	"context"

	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// placeDoc resolves the collection a document id belongs to, the partition
// that owns it, and the address to dispatch write/get/count RPCs to.
func placeDoc(ctx context.Context, m meta.Client, collectionName, id string) (types.Collection, types.CPID, string, error) {
	coll, err := m.GetCollectionByName(ctx, collectionName)
	if err != nil {
		return types.Collection{}, types.CPID{}, "", err
	}
	if coll.PartitionCount == 0 {
		return types.Collection{}, types.CPID{}, "", pserrors.New(types.InternalErr, "collection %q has no partitions", collectionName)
	}

	partitionID := uint32(kv.ExternalHash(id, "") % uint64(coll.PartitionCount))
	cpid := types.CPID{CollectionID: coll.ID, PartitionID: partitionID}

	part, err := m.GetPartition(ctx, cpid)
	if err != nil {
		return types.Collection{}, types.CPID{}, "", err
	}

	return *coll, cpid, partitionAddr(*part), nil
}

// partitionAddr picks the address to dispatch to: the current leader when
// known, falling back to any replica (reads tolerate a stale replica; the
// RPC surface returns PartitionNotLeader on a misrouted write, which the
// caller surfaces to the client rather than retrying here).
func partitionAddr(p types.Partition) string {
	if p.LeaderAddr != "" {
		return p.LeaderAddr
	}
	if len(p.Replicas) > 0 {
		return p.Replicas[0].Addr
	}
	return ""
}

// scatterTargets resolves every partition of the named collections into a
// set of dispatch targets, grouped by node address so count/search issue one
// RPC per node rather than one per partition.
func scatterTargets(ctx context.Context, m meta.Client, collectionNames []string) (map[string][]types.CPID, error) {
	targets := make(map[string][]types.CPID)

	for _, name := range collectionNames {
		coll, err := m.GetCollectionByName(ctx, name)
		if err != nil {
			return nil, err
		}
		parts, err := m.ListPartitions(ctx, coll.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range parts {
			addr := partitionAddr(p)
			if addr == "" {
				return nil, pserrors.New(types.InternalErr, "partition %d/%d has no reachable replica", p.CollectionID, p.ID)
			}
			cpid := types.CPID{CollectionID: p.CollectionID, PartitionID: p.ID}
			targets[addr] = append(targets[addr], cpid)
		}
	}

	return targets, nil
}
