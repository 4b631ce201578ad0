package pservice

import (
	"context"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/meta"
)

// TakeHeartbeat reports this node's liveness to the master. It is called
// both periodically and immediately after any ApplyLeaderChange.
func (s *Service) TakeHeartbeat(ctx context.Context) error {
	s.opLock.Lock()
	defer s.opLock.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cfg.Meta.PutPServer(ctx, meta.Heartbeat{
		NodeID:  s.serverID.Load(),
		IP:      s.cfg.IP,
		RPCPort: s.cfg.RPCPort,
	})
}

func (s *Service) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.TakeHeartbeat(context.Background()); err != nil {
				log.WithComponent("pservice").Warn().Err(err).Msg("periodic heartbeat failed")
			}
		case <-s.stopHeartbeat:
			return
		}
	}
}
