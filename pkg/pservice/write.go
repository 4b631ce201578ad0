package pservice

import (
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// lookup finds the local entry for cpid and brackets the call with
// acquire/release so OffloadPartition's drain can observe it.
func (s *Service) lookup(cpid types.CPID) (*partitionEntry, bool) {
	s.mu.RLock()
	entry, ok := s.byCPID[cpid]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	entry.acquire()
	return entry, true
}

// Write proposes a write to the leader-held partition — the request must
// land on the replica currently tagged Leader.
func (s *Service) Write(req types.WriteRequest) (types.WriteResponse, error) {
	cpid := types.CPID{CollectionID: req.CollectionID, PartitionID: req.PartitionID}
	entry, ok := s.lookup(cpid)
	if !ok {
		return types.WriteResponse{}, pserrors.New(types.NotFound, "partition %d/%d not found on this node", cpid.CollectionID, cpid.PartitionID)
	}
	defer entry.release()

	if entry.Role() != RoleLeader {
		return types.WriteResponse{}, pserrors.New(types.PartitionNotLeader, "partition %d/%d is not led by this node", cpid.CollectionID, cpid.PartitionID)
	}

	return entry.engine.Write(req, entry.group)
}

// Get serves a read on whichever role this node holds the partition as:
// reads are served from any replica, not just the leader.
func (s *Service) Get(cpid types.CPID, id, sortKey string) ([]byte, error) {
	entry, ok := s.lookup(cpid)
	if !ok {
		return nil, pserrors.New(types.NotFound, "partition %d/%d not found on this node", cpid.CollectionID, cpid.PartitionID)
	}
	defer entry.release()

	return entry.engine.Get(id, sortKey)
}

// Count fans out across cpids, aborting entirely if any is not held
// locally, but soft-accumulating a per-partition Count() failure into the
// merged response rather than aborting the whole call.
func (s *Service) Count(cpids []types.CPID) (types.CountResponse, error) {
	out := types.CountResponse{Code: types.Success}

	for _, cpid := range cpids {
		entry, ok := s.lookup(cpid)
		if !ok {
			return types.CountResponse{}, pserrors.New(types.NotFound, "partition %d/%d not found on this node", cpid.CollectionID, cpid.PartitionID)
		}

		partial, err := entry.engine.Count()
		entry.release()
		if err != nil {
			out.Code = pserrors.CodeOf(err)
			out.Message += pserrors.MessageOf(err) + "; "
			continue
		}

		out.Estimate += partial.Estimate
		out.IndexCount += partial.IndexCount
		out.DBCount += partial.DBCount
	}

	return out, nil
}
