package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/pserver"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/stretchr/testify/require"
)

// fakeMeta serves a single collection, optionally split across several
// partitions, each pinned to a caller-supplied address.
type fakeMeta struct {
	collections map[string]*types.Collection
	partitions  map[types.CPID]types.Partition
	byCollID    map[uint32][]types.Partition
}

func newFakeMeta() *fakeMeta {
	return &fakeMeta{
		collections: make(map[string]*types.Collection),
		partitions:  make(map[types.CPID]types.Partition),
		byCollID:    make(map[uint32][]types.Partition),
	}
}

func (m *fakeMeta) addCollection(c types.Collection, addrsByPartition ...string) {
	c.PartitionCount = uint32(len(addrsByPartition))
	cc := c
	m.collections[c.Name] = &cc
	for pid, addr := range addrsByPartition {
		p := types.Partition{ID: uint32(pid), CollectionID: c.ID, LeaderAddr: addr}
		cpid := types.CPID{CollectionID: c.ID, PartitionID: uint32(pid)}
		m.partitions[cpid] = p
		m.byCollID[c.ID] = append(m.byCollID[c.ID], p)
	}
}

func (m *fakeMeta) Register(ctx context.Context, info meta.NodeInfo) (meta.RegisterResult, error) {
	return meta.RegisterResult{}, nil
}

func (m *fakeMeta) GetCollectionByID(ctx context.Context, id uint32) (*types.Collection, error) {
	for _, c := range m.collections {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, pserrors.New(types.NotFound, "collection %d not found", id)
}

func (m *fakeMeta) GetCollectionByName(ctx context.Context, name string) (*types.Collection, error) {
	c, ok := m.collections[name]
	if !ok {
		return nil, pserrors.New(types.NotFound, "collection %q not found", name)
	}
	return c, nil
}

func (m *fakeMeta) GetPartition(ctx context.Context, cpid types.CPID) (*types.Partition, error) {
	p, ok := m.partitions[cpid]
	if !ok {
		return nil, pserrors.New(types.NotFound, "partition %d/%d not found", cpid.CollectionID, cpid.PartitionID)
	}
	return &p, nil
}

func (m *fakeMeta) ListPartitions(ctx context.Context, collectionID uint32) ([]types.Partition, error) {
	return m.byCollID[collectionID], nil
}

func (m *fakeMeta) PutPServer(ctx context.Context, hb meta.Heartbeat) error { return nil }

func (m *fakeMeta) NodeAddr(ctx context.Context, nodeID uint64) (string, error) { return "", nil }

// fakePS is a pserver.Client stub keyed by address, so a test can give each
// partition's owning node a distinct canned response.
type fakePS struct {
	getResp    map[string]pserver.GetResponse
	getErr     map[string]error
	writeResp  map[string]types.WriteResponse
	writeErr   map[string]error
	countResp  map[string]types.CountResponse
	searchResp map[string]types.SearchDocumentResponse
	writes     []types.WriteRequest
}

func newFakePS() *fakePS {
	return &fakePS{
		getResp:    make(map[string]pserver.GetResponse),
		getErr:     make(map[string]error),
		writeResp:  make(map[string]types.WriteResponse),
		writeErr:   make(map[string]error),
		countResp:  make(map[string]types.CountResponse),
		searchResp: make(map[string]types.SearchDocumentResponse),
	}
}

func (p *fakePS) Write(ctx context.Context, addr string, req types.WriteRequest) (types.WriteResponse, error) {
	p.writes = append(p.writes, req)
	if err, ok := p.writeErr[addr]; ok {
		return types.WriteResponse{}, err
	}
	return p.writeResp[addr], nil
}

func (p *fakePS) Get(ctx context.Context, addr string, req pserver.GetRequest) (pserver.GetResponse, error) {
	if err, ok := p.getErr[addr]; ok {
		return pserver.GetResponse{}, err
	}
	return p.getResp[addr], nil
}

func (p *fakePS) Count(ctx context.Context, addr string, cpids []types.CPID) (types.CountResponse, error) {
	return p.countResp[addr], nil
}

func (p *fakePS) Search(ctx context.Context, addr string, req types.SearchRequest) (types.SearchDocumentResponse, error) {
	return p.searchResp[addr], nil
}

func (p *fakePS) Status(ctx context.Context, addr string) (types.GeneralResponse, error) {
	return types.GeneralResponse{Code: types.Success}, nil
}

func TestHandleGetRoundTrip(t *testing.T) {
	m := newFakeMeta()
	m.addCollection(types.Collection{ID: 1, Name: "widgets"}, "node1:8700")

	ps := newFakePS()
	ps.getResp["node1:8700"] = pserver.GetResponse{Code: types.Success, Source: []byte(`{"n":1}`)}

	s := NewServer(m, ps, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/get/widgets/a")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env docEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, "a", env.ID)
	require.JSONEq(t, `{"n":1}`, string(env.Source))
}

func TestHandleGetPropagatesNotFound(t *testing.T) {
	m := newFakeMeta()
	m.addCollection(types.Collection{ID: 1, Name: "widgets"}, "node1:8700")

	ps := newFakePS()
	ps.getErr["node1:8700"] = pserrors.New(types.NotFound, "no such document")

	s := NewServer(m, ps, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/get/widgets/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleWriteCreateDispatchesToOwningPartition(t *testing.T) {
	m := newFakeMeta()
	m.addCollection(types.Collection{ID: 1, Name: "widgets"}, "node1:8700")

	ps := newFakePS()
	ps.writeResp["node1:8700"] = types.WriteResponse{Code: types.Success}

	s := NewServer(m, ps, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/create/widgets/a", "application/json", bytes.NewReader([]byte(`{"n":1}`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, ps.writes, 1)
	require.Equal(t, types.WriteCreate, ps.writes[0].WriteType)
	require.Equal(t, "a", ps.writes[0].Doc.ID)
	require.JSONEq(t, `{"n":1}`, string(ps.writes[0].Doc.Source))
}

func TestHandleCountSumsAcrossPartitions(t *testing.T) {
	m := newFakeMeta()
	m.addCollection(types.Collection{ID: 1, Name: "widgets"}, "node1:8700", "node2:8700")

	ps := newFakePS()
	ps.countResp["node1:8700"] = types.CountResponse{Code: types.Success, IndexCount: 3}
	ps.countResp["node2:8700"] = types.CountResponse{Code: types.Success, IndexCount: 5}

	s := NewServer(m, ps, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/count/widgets")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]uint64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, uint64(8), body["count"])
}

func TestHandleSearchMergesAcrossPartitionsDescendingByScore(t *testing.T) {
	m := newFakeMeta()
	m.addCollection(types.Collection{ID: 1, Name: "widgets"}, "node1:8700", "node2:8700")

	ps := newFakePS()
	ps.searchResp["node1:8700"] = types.SearchDocumentResponse{
		Code: types.Success, Total: 2,
		Hits: []types.Hit{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.5}},
	}
	ps.searchResp["node2:8700"] = types.SearchDocumentResponse{
		Code: types.Success, Total: 2,
		Hits: []types.Hit{{ID: "c", Score: 0.8}, {ID: "d", Score: 0.7}},
	}

	s := NewServer(m, ps, "127.0.0.1:0")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search/widgets?size=3")
	require.NoError(t, err)
	defer resp.Body.Close()

	var env searchEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, uint64(4), env.Total)
	require.Len(t, env.Hits, 3)
	require.Equal(t, "a", env.Hits[0].ID)
	require.Equal(t, "c", env.Hits[1].ID)
	require.Equal(t, "d", env.Hits[2].ID)
}

func TestParseSortRejectsInvalidDirection(t *testing.T) {
	_, err := parseSort("name:sideways")
	require.Error(t, err)
	require.Equal(t, types.ParamError, pserrors.CodeOf(err))
}

func TestParseSortParsesPipeSeparatedClauses(t *testing.T) {
	clauses, err := parseSort("name:asc|age:desc")
	require.NoError(t, err)
	require.Equal(t, []types.SortClause{
		{Field: "name", Descending: false},
		{Field: "age", Descending: true},
	}, clauses)
}
