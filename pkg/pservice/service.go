package pservice

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/raftbinding"
	"github.com/cuemby/chubaodb-go/pkg/resolver"
	"github.com/cuemby/chubaodb-go/pkg/simba"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/hashicorp/raft"
)

// Config configures a node's Partition Service.
type Config struct {
	Meta    meta.Client
	IP      string
	RPCPort uint32

	// DataDir is the base directory under which each partition gets its
	// own kv/index/raft subdirectories (data_dir/<collection_id>/<partition_id>/...).
	DataDir string

	// RaftBindHost and RaftBasePort choose the TCP address each local
	// partition's Raft transport binds to; the port is assigned
	// sequentially per partition as it's initialized.
	RaftBindHost string
	RaftBasePort int

	// HeartbeatInterval is the period of the periodic TakeHeartbeat loop,
	// in addition to the one triggered on every leader change.
	HeartbeatInterval time.Duration
}

// Service is the Partition Service: the per-node registry of locally held
// partitions and the write/get/count/search/command dispatch over them.
type Service struct {
	cfg      Config
	resolver raft.ServerAddressProvider
	serverID atomic.Uint64

	mu       sync.RWMutex
	byCPID   map[types.CPID]*partitionEntry
	opLock   sync.Mutex // serializes InitPartition/OffloadPartition

	nextRaftPort atomic.Int32
	stopHeartbeat chan struct{}
}

// New builds a Service. Call Init to register with the master and bring up
// the partitions it assigns.
func New(cfg Config) *Service {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}
	s := &Service{
		cfg:           cfg,
		byCPID:        make(map[types.CPID]*partitionEntry),
		stopHeartbeat: make(chan struct{}),
	}
	s.resolver = resolver.New(cfg.Meta)
	s.nextRaftPort.Store(int32(cfg.RaftBasePort))
	return s
}

// Init registers this node with the master, brings up every partition the
// master assigned (using the Raft address resolver built in New), and
// starts the periodic heartbeat loop.
func (s *Service) Init(ctx context.Context) error {
	result, err := s.cfg.Meta.Register(ctx, meta.NodeInfo{IP: s.cfg.IP, RPCPort: s.cfg.RPCPort})
	if err != nil {
		return fmt.Errorf("register with master: %w", err)
	}
	s.serverID.Store(result.NodeID)
	log.Info(fmt.Sprintf("registered with master: node_id=%d", result.NodeID))

	for _, wp := range result.WritePartitions {
		if err := s.InitPartition(ctx, wp.CollectionID, wp.PartitionID, wp.Replicas, wp.Version); err != nil {
			log.WithComponent("pservice").Error().Err(err).
				Uint32("collection_id", wp.CollectionID).Uint32("partition_id", wp.PartitionID).
				Msg("init partition from registration failed")
		}
	}

	go s.heartbeatLoop()
	return nil
}

// Stop ends the heartbeat loop. Locally held partitions are left running;
// callers should OffloadPartition each one first if a clean shutdown is
// required.
func (s *Service) Stop() {
	close(s.stopHeartbeat)
}

// ServerID returns the node id the master assigned this node on Init, or 0
// if Init hasn't completed yet.
func (s *Service) ServerID() uint64 {
	return s.serverID.Load()
}

// PartitionCount returns the number of partitions currently held locally
// (leader or member), for readiness reporting.
func (s *Service) PartitionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byCPID)
}

// InitPartition idempotently brings up one partition. If a local entry for
// the cpid already exists it returns success without changing anything.
func (s *Service) InitPartition(ctx context.Context, collectionID, partitionID uint32, replicas []types.Replica, version uint64) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	cpid := types.CPID{CollectionID: collectionID, PartitionID: partitionID}

	s.mu.RLock()
	_, exists := s.byCPID[cpid]
	s.mu.RUnlock()
	if exists {
		return nil
	}

	collection, err := s.cfg.Meta.GetCollectionByID(ctx, collectionID)
	if err != nil {
		return fmt.Errorf("fetch collection %d: %w", collectionID, err)
	}

	if version > 0 {
		remote, err := s.cfg.Meta.GetPartition(ctx, cpid)
		if err != nil {
			return fmt.Errorf("fetch partition %d/%d: %w", collectionID, partitionID, err)
		}
		if remote.Version > version {
			return pserrors.New(types.VersionErr,
				"partition %d/%d version not right: expected %d found %d",
				collectionID, partitionID, version, remote.Version)
		}
	}

	partition := types.Partition{
		ID:           partitionID,
		CollectionID: collectionID,
		Replicas:     replicas,
		LeaderAddr:   fmt.Sprintf("%s:%d", s.cfg.IP, s.cfg.RPCPort),
		Version:      version + 1,
	}

	kvDir := filepath.Join(s.cfg.DataDir, fmt.Sprint(collectionID), fmt.Sprint(partitionID), "data")
	indexDir := filepath.Join(s.cfg.DataDir, fmt.Sprint(collectionID), fmt.Sprint(partitionID), "index")
	raftDir := filepath.Join(s.cfg.DataDir, fmt.Sprint(collectionID), fmt.Sprint(partitionID), "raft")

	store, err := kv.Open(kvDir)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}
	encPartition, err := types.EncodePartition(partition)
	if err != nil {
		return fmt.Errorf("encode partition descriptor: %w", err)
	}
	if err := store.Put(kv.MetaPartitionKey(), encPartition); err != nil {
		return fmt.Errorf("persist partition descriptor: %w", err)
	}
	engine, err := simba.Open(collection, store, indexDir)
	if err != nil {
		return fmt.Errorf("open partition engine: %w", err)
	}

	port := s.nextRaftPort.Add(1)
	bindAddr := fmt.Sprintf("%s:%d", s.cfg.RaftBindHost, port)

	entry := newPartitionEntry(partition, collection, engine, nil, RoleMember)

	group, err := raftbinding.NewGroup(raftbinding.Config{
		CPID:         cpid,
		LocalID:      s.serverID.Load(),
		BindAddr:     bindAddr,
		DataDir:      raftDir,
		Bootstrap:    len(replicas) > 0 && replicas[0].NodeID == s.serverID.Load(),
		Replicas:     replicas,
		Resolver:     s.resolver,
		OnLeaderChange: func(isLeader bool) {
			role := RoleMember
			if isLeader {
				role = RoleLeader
			}
			entry.setRole(role)
			if err := s.TakeHeartbeat(context.Background()); err != nil {
				log.WithPartition(cpid.CollectionID, cpid.PartitionID).Warn().Err(err).
					Msg("heartbeat report after leadership change failed")
			}
		},
	}, engine)
	if err != nil {
		engine.Release()
		return fmt.Errorf("start raft group: %w", err)
	}
	entry.group = group

	s.mu.Lock()
	s.byCPID[cpid] = entry
	s.mu.Unlock()

	return nil
}

// OffloadPartition removes a locally held partition, draining in-flight
// callers before releasing its resources. A partition that isn't held
// locally is treated as already-offloaded success.
func (s *Service) OffloadPartition(cpid types.CPID) error {
	s.opLock.Lock()
	s.mu.Lock()
	entry, ok := s.byCPID[cpid]
	if ok {
		delete(s.byCPID, cpid)
	}
	s.mu.Unlock()
	s.opLock.Unlock()

	if !ok {
		return nil
	}

	timer := metrics.NewTimer()
	entry.engine.Stop()
	entry.drain()
	if entry.group != nil {
		if err := entry.group.Close(); err != nil {
			log.WithComponent("pservice").Warn().Err(err).Msg("error closing raft group during offload")
		}
	}
	err := entry.engine.Release()
	entry.forget()
	timer.ObserveDuration(metrics.PartitionOffloadDuration)
	return err
}

// ApplyLeaderChange reacts to this node's Raft leadership of a partition
// flipping, swapping the tagged role and always re-reporting heartbeat.
func (s *Service) ApplyLeaderChange(cpid types.CPID, leaderID uint64) error {
	s.mu.RLock()
	entry, ok := s.byCPID[cpid]
	s.mu.RUnlock()
	if !ok {
		return pserrors.New(types.NotFound, "partition %d/%d not found on this node", cpid.CollectionID, cpid.PartitionID)
	}

	isLeader := leaderID == s.serverID.Load()
	role := RoleMember
	if isLeader {
		role = RoleLeader
	}
	entry.setRole(role)

	return s.TakeHeartbeat(context.Background())
}
