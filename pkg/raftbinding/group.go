package raftbinding

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/metrics"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/simba"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config configures one partition's Raft group.
type Config struct {
	CPID types.CPID

	// LocalID is this node's Raft server id.
	LocalID uint64
	// BindAddr is the local TCP address this group's transport listens on.
	// Each partition hosted by a node needs its own, since hashicorp/raft
	// binds one NetworkTransport per *raft.Raft.
	BindAddr string
	// DataDir holds this partition's raft-log.db, raft-stable.db, and
	// snapshots, separate from its KV/index directories.
	DataDir string

	// Bootstrap, when true, seeds a brand-new single-or-multi-member
	// cluster from Replicas. Only the node creating the partition for the
	// first time should set this.
	Bootstrap bool
	Replicas  []types.Replica

	// Resolver backs the transport's ServerAddressProvider so Raft
	// configurations only need to carry node ids, resolved at dial time.
	Resolver raft.ServerAddressProvider

	// ApplyTimeout bounds how long Propose waits for a commit. Defaults to
	// 5s.
	ApplyTimeout time.Duration

	// OnLeaderChange is invoked (from a dedicated goroutine) every time
	// this node's leadership of the group flips.
	OnLeaderChange func(isLeader bool)
}

// Group owns one partition's *raft.Raft instance and implements
// simba.Proposer on top of it.
type Group struct {
	cpid         types.CPID
	raft         *raft.Raft
	logStore     *raftboltdb.BoltStore
	stableStore  *raftboltdb.BoltStore
	applyTimeout time.Duration
	notifyCh     chan bool
	stopNotify   chan struct{}
}

var _ simba.Proposer = (*Group)(nil)

// NewGroup constructs and starts one partition's Raft group, keyed by its
// CPID rather than a single cluster-wide group.
func NewGroup(cfg Config, engine *simba.Engine) (*Group, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create raft data dir: %w", err)
	}

	raftCfg := raft.DefaultConfig()
	raftCfg.LocalID = raft.ServerID(strconv.FormatUint(cfg.LocalID, 10))
	// Tuned for LAN/edge deployments rather than Raft's WAN-conservative
	// defaults.
	raftCfg.HeartbeatTimeout = 500 * time.Millisecond
	raftCfg.ElectionTimeout = 500 * time.Millisecond
	raftCfg.CommitTimeout = 50 * time.Millisecond
	raftCfg.LeaderLeaseTimeout = 250 * time.Millisecond

	notifyCh := make(chan bool, 1)
	raftCfg.NotifyCh = notifyCh

	addr, err := net.ResolveTCPAddr("tcp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve raft bind address: %w", err)
	}

	transport, err := raft.NewTCPTransportWithConfig(cfg.BindAddr, addr, &raft.NetworkTransportConfig{
		ServerAddressProvider: cfg.Resolver,
		MaxPool:               3,
		Timeout:               10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("create raft transport: %w", err)
	}

	snapshotStore, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("create raft log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("create raft stable store: %w", err)
	}

	r, err := raft.NewRaft(raftCfg, newFSM(engine), logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("create raft instance: %w", err)
	}

	if cfg.Bootstrap {
		servers := make([]raft.Server, 0, len(cfg.Replicas))
		for _, rep := range cfg.Replicas {
			servers = append(servers, raft.Server{
				ID:      raft.ServerID(strconv.FormatUint(rep.NodeID, 10)),
				Address: raft.ServerAddress(rep.Addr),
			})
		}
		future := r.BootstrapCluster(raft.Configuration{Servers: servers})
		if err := future.Error(); err != nil && err != raft.ErrCantBootstrap {
			return nil, fmt.Errorf("bootstrap raft cluster: %w", err)
		}
	}

	applyTimeout := cfg.ApplyTimeout
	if applyTimeout == 0 {
		applyTimeout = 5 * time.Second
	}

	g := &Group{
		cpid:         cfg.CPID,
		raft:         r,
		logStore:     logStore,
		stableStore:  stableStore,
		applyTimeout: applyTimeout,
		notifyCh:     notifyCh,
		stopNotify:   make(chan struct{}),
	}

	go g.watchLeadership(cfg.OnLeaderChange)

	return g, nil
}

func (g *Group) watchLeadership(onChange func(bool)) {
	for {
		select {
		case isLeader := <-g.notifyCh:
			metrics.RaftIsLeader.WithLabelValues(cpidLabel(g.cpid)).Set(boolToFloat(isLeader))
			log.WithPartition(g.cpid.CollectionID, g.cpid.PartitionID).Info().
				Bool("is_leader", isLeader).Msg("raft leadership changed")
			if onChange != nil {
				onChange(isLeader)
			}
		case <-g.stopNotify:
			return
		}
	}
}

// Propose implements simba.Proposer: it blocks until the entry commits and
// applies, returning exactly what fsm.Apply returned for it. See the
// package doc for why no separate proposal-id waiter registry is needed.
func (g *Group) Propose(data []byte) (types.WriteResponse, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	future := g.raft.Apply(data, g.applyTimeout)
	if err := future.Error(); err != nil {
		return types.WriteResponse{}, pserrors.New(types.Timeout, "raft apply did not commit: %v", err)
	}

	r, ok := future.Response().(applyResult)
	if !ok {
		return types.WriteResponse{}, pserrors.New(types.InternalErr, "unexpected raft apply response type")
	}

	metrics.RaftLogIndex.WithLabelValues(cpidLabel(g.cpid)).Set(float64(g.raft.LastIndex()))
	metrics.RaftAppliedIndex.WithLabelValues(cpidLabel(g.cpid)).Set(float64(g.raft.AppliedIndex()))

	return r.Resp, r.Err
}

// IsLeader reports whether this replica currently holds leadership of the
// group.
func (g *Group) IsLeader() bool {
	return g.raft.State() == raft.Leader
}

// AddVoter adds a new replica to the group's configuration. Only the
// current leader may call this successfully (raft.Raft enforces it).
func (g *Group) AddVoter(nodeID uint64, addr string) error {
	id := raft.ServerID(strconv.FormatUint(nodeID, 10))
	future := g.raft.AddVoter(id, raft.ServerAddress(addr), 0, 0)
	return future.Error()
}

// Close shuts down the Raft instance and its log/stable stores.
func (g *Group) Close() error {
	close(g.stopNotify)

	if err := g.raft.Shutdown().Error(); err != nil {
		return fmt.Errorf("shutdown raft: %w", err)
	}
	if err := g.logStore.Close(); err != nil {
		return fmt.Errorf("close raft log store: %w", err)
	}
	if err := g.stableStore.Close(); err != nil {
		return fmt.Errorf("close raft stable store: %w", err)
	}
	return nil
}

func cpidLabel(cpid types.CPID) string {
	return fmt.Sprintf("%d-%d", cpid.CollectionID, cpid.PartitionID)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
