package router

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/cuemby/chubaodb-go/pkg/log"
	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/pserver"
	"github.com/cuemby/chubaodb-go/pkg/types"
)

// Server is the document-facing HTTP API: one route per write mode plus
// get/delete/count/search, dispatched against pkg/meta for placement and
// pkg/pserver for RPC.
type Server struct {
	meta meta.Client
	ps   pserver.Client
	mux  *http.ServeMux
	http *http.Server
}

// NewServer builds a router Server listening on addr.
func NewServer(m meta.Client, ps pserver.Client, addr string) *Server {
	s := &Server{meta: m, ps: ps}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /get/{collection_name}/{id}", s.handleGet)
	s.mux.HandleFunc("POST /create/{collection_name}/{id}", s.handleWrite(types.WriteCreate))
	s.mux.HandleFunc("POST /put/{collection_name}/{id}", s.handleWrite(types.WritePut))
	s.mux.HandleFunc("POST /update/{collection_name}/{id}", s.handleWrite(types.WriteUpdate))
	s.mux.HandleFunc("POST /upsert/{collection_name}/{id}", s.handleWrite(types.WriteUpsert))
	s.mux.HandleFunc("DELETE /delete/{collection_name}/{id}", s.handleWrite(types.WriteDelete))
	s.mux.HandleFunc("GET /count/{collection_name}", s.handleCount)
	s.mux.HandleFunc("GET /search/{collection_names}", s.handleSearch)
	s.mux.HandleFunc("POST /search/{collection_names}", s.handleSearch)
	s.http = &http.Server{Addr: addr, Handler: s.mux}
	return s
}

// Handler exposes the underlying mux for httptest-driven tests.
func (s *Server) Handler() http.Handler { return s.mux }

// Start serves the document API until Stop is called or it fails.
func (s *Server) Start() error {
	log.Info(fmt.Sprintf("router listening on %s", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the document API down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// docEnvelope is the `{_id,_sort_key,_version,_source}` JSON shape every
// document-bearing response wraps its payload in.
type docEnvelope struct {
	ID      string          `json:"_id"`
	SortKey string          `json:"_sort_key,omitempty"`
	Version int64           `json:"_version,omitempty"`
	Source  json.RawMessage `json:"_source,omitempty"`
}

// generalEnvelope is the bare code/message shape for write/delete/status
// responses with no document payload.
type generalEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := pserrors.CodeOf(err)
	writeJSON(w, code.HTTPStatus(), generalEnvelope{Code: code.String(), Message: pserrors.MessageOf(err)})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	collName := r.PathValue("collection_name")
	id := r.PathValue("id")
	sortKey := r.URL.Query().Get("sort_key")

	_, cpid, addr, err := placeDoc(r.Context(), s.meta, collName, id)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.ps.Get(r.Context(), addr, pserver.GetRequest{CPID: cpid, ID: id, SortKey: sortKey})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, docEnvelope{ID: id, SortKey: sortKey, Source: resp.Source})
}

// handleWrite returns a handler for one of the create/put/update/upsert/
// delete routes, all of which share the same placement + dispatch shape and
// differ only in the WriteType sent to the partition.
func (s *Server) handleWrite(wt types.WriteType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		collName := r.PathValue("collection_name")
		id := r.PathValue("id")

		var source []byte
		if wt != types.WriteDelete {
			body, err := readBody(r)
			if err != nil {
				writeError(w, pserrors.New(types.ParamError, "read request body: %v", err))
				return
			}
			source = body
		}

		version, _ := strconv.ParseInt(r.URL.Query().Get("version"), 10, 64)
		sortKey := r.URL.Query().Get("sort_key")

		coll, cpid, addr, err := placeDoc(r.Context(), s.meta, collName, id)
		if err != nil {
			writeError(w, err)
			return
		}

		req := types.WriteRequest{
			CollectionID: coll.ID,
			PartitionID:  cpid.PartitionID,
			WriteType:    wt,
			Doc:          types.Document{ID: id, SortKey: sortKey, Version: version, Source: source},
		}

		resp, err := s.ps.Write(r.Context(), addr, req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, generalEnvelope{Code: resp.Code.String(), Message: resp.Message})
	}
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	collName := r.PathValue("collection_name")

	byAddr, err := scatterTargets(r.Context(), s.meta, []string{collName})
	if err != nil {
		writeError(w, err)
		return
	}

	var total uint64
	for addr, cpids := range byAddr {
		resp, err := s.ps.Count(r.Context(), addr, cpids)
		if err != nil {
			writeError(w, err)
			return
		}
		total += resp.IndexCount
	}

	writeJSON(w, http.StatusOK, map[string]uint64{"count": total})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var names []string
	for _, name := range strings.Split(r.PathValue("collection_names"), ",") {
		if name != "" {
			names = append(names, name)
		}
	}

	q, err := parseSearchQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	byAddr, err := scatterTargets(r.Context(), s.meta, names)
	if err != nil {
		writeError(w, err)
		return
	}

	var total uint64
	var allHits [][]types.Hit
	for addr, cpids := range byAddr {
		req := types.SearchRequest{
			CPIDs:       cpids,
			Query:       q.Query,
			DefFields:   q.DefFields,
			VectorQuery: q.VectorQuery,
			Size:        q.Size,
			Sort:        q.Sort,
		}
		resp, err := s.ps.Search(r.Context(), addr, req)
		if err != nil {
			writeError(w, err)
			return
		}
		total += resp.Total
		allHits = append(allHits, resp.Hits)
	}

	var first []types.Hit
	var rest [][]types.Hit
	if len(allHits) > 0 {
		first, rest = allHits[0], allHits[1:]
	}

	writeJSON(w, http.StatusOK, searchEnvelope{
		Code:  types.Success.String(),
		Total: total,
		Hits:  docsFromHits(mergeHits(first, rest, q.Size)),
	})
}

// searchEnvelope is the JSON shape of a merged search response.
type searchEnvelope struct {
	Code  string        `json:"code"`
	Total uint64        `json:"total"`
	Hits  []docEnvelope `json:"hits"`
}

func docsFromHits(hits []types.Hit) []docEnvelope {
	out := make([]docEnvelope, 0, len(hits))
	for _, h := range hits {
		out = append(out, docEnvelope{ID: h.ID, SortKey: h.SortKey, Source: h.DocBytes})
	}
	return out
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
