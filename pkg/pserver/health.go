package pserver

import (
	"fmt"
	"net/http"

	"github.com/cuemby/chubaodb-go/pkg/metrics"
)

// reportHealth pushes this node's registration and partition-load state into
// the shared health checker so /health and /ready reflect it.
func (s *Server) reportHealth() {
	if id := s.svc.ServerID(); id != 0 {
		metrics.UpdateComponent("registration", true, fmt.Sprintf("registered as node %d", id))
	} else {
		metrics.UpdateComponent("registration", false, "not registered with master")
	}

	n := s.svc.PartitionCount()
	metrics.UpdateComponent("partitions", n > 0, fmt.Sprintf("%d held", n))
}

func (s *Server) registerHealthRoutes(mux *http.ServeMux) {
	s.reportHealth()
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/ready", s.readyHandler)
	mux.Handle("/metrics", metrics.Handler())
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.reportHealth()
	metrics.HealthHandler()(w, r)
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	s.reportHealth()
	metrics.ReadyHandler()(w, r)
}
