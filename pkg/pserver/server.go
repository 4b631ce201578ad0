package pserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/pservice"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// GetRequest is the body of /rpc/get.
type GetRequest struct {
	CPID    types.CPID
	ID      string
	SortKey string
}

// GetResponse is the body returned by /rpc/get.
type GetResponse struct {
	Code   types.Code
	Source []byte
}

// CountRequest is the body of /rpc/count.
type CountRequest struct {
	CPIDs []types.CPID
}

// LoadPartitionRequest is the body of /rpc/load_partition.
type LoadPartitionRequest struct {
	CollectionID uint32
	PartitionID  uint32
	Replicas     []types.Replica
	Version      uint64
}

// OffloadPartitionRequest is the body of /rpc/offload_partition.
type OffloadPartitionRequest struct {
	CPID types.CPID
}

// Server exposes a pservice.Service over the PS RPC surface:
// write/get/count/search/status/offload_partition/load_partition/command.
type Server struct {
	svc  *pservice.Service
	mux  *http.ServeMux
	http *http.Server
}

// NewServer wraps svc for RPC serving on addr.
func NewServer(svc *pservice.Service, addr string) *Server {
	s := &Server{svc: svc}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/rpc/write", s.handleWrite)
	s.mux.HandleFunc("/rpc/get", s.handleGet)
	s.mux.HandleFunc("/rpc/count", s.handleCount)
	s.mux.HandleFunc("/rpc/search", s.handleSearch)
	s.mux.HandleFunc("/rpc/status", s.handleStatus)
	s.mux.HandleFunc("/rpc/offload_partition", s.handleOffloadPartition)
	s.mux.HandleFunc("/rpc/load_partition", s.handleLoadPartition)
	s.mux.HandleFunc("/rpc/command", s.handleCommand)
	s.registerHealthRoutes(s.mux)
	s.http = &http.Server{Addr: addr, Handler: s.mux}
	return s
}

// Handler exposes the underlying mux, for tests that want to drive the
// surface with httptest rather than a real listener.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves the PS RPC surface until Stop is called or it fails.
func (s *Server) Start() error {
	log.Info(fmt.Sprintf("PS RPC surface listening on %s", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the RPC surface down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := pserrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), types.GeneralResponse{Code: code, Message: pserrors.MessageOf(err)})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req types.WriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode write request: %v", err))
		return
	}
	resp, err := s.svc.Write(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req GetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode get request: %v", err))
		return
	}
	src, err := s.svc.Get(req.CPID, req.ID, req.SortKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GetResponse{Code: types.Success, Source: src})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	var req CountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode count request: %v", err))
		return
	}
	resp, err := s.svc.Count(req.CPIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode search request: %v", err))
		return
	}
	resp, err := s.svc.Search(req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOffloadPartition(w http.ResponseWriter, r *http.Request) {
	var req OffloadPartitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode offload_partition request: %v", err))
		return
	}
	if err := s.svc.OffloadPartition(req.CPID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GeneralResponse{Code: types.Success, Message: "success"})
}

func (s *Server) handleLoadPartition(w http.ResponseWriter, r *http.Request) {
	var req LoadPartitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, pserrors.New(types.ParamError, "decode load_partition request: %v", err))
		return
	}
	if err := s.svc.InitPartition(r.Context(), req.CollectionID, req.PartitionID, req.Replicas, req.Version); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.GeneralResponse{Code: types.Success, Message: "success"})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, pserrors.New(types.ParamError, "read command body: %v", err))
		return
	}
	defer r.Body.Close()

	out, err := s.svc.Command(body)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
