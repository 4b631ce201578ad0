package raftbinding

import (
	"net"
	"testing"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/simba"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/stretchr/testify/require"
)

// freeLoopbackAddr grabs an ephemeral port and releases it immediately, so
// the Raft transport created moments later can bind to the same address
// deterministically (needed since the bootstrap configuration must name
// the exact advertise address up front).
func freeLoopbackAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func newSingleNodeGroup(t *testing.T) (*Group, *simba.Engine) {
	t.Helper()

	store, err := kv.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	collection := &types.Collection{
		ID:               1,
		Name:             "widgets",
		Fields:           []types.Field{{Name: "n", Type: types.FieldInt}},
		ScalarFieldIndex: []string{"n"},
	}
	engine, err := simba.Open(collection, store, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(engine.Stop)

	addr := freeLoopbackAddr(t)
	cpid := types.CPID{CollectionID: 1, PartitionID: 0}

	group, err := NewGroup(Config{
		CPID:         cpid,
		LocalID:      1,
		BindAddr:     addr,
		DataDir:      t.TempDir(),
		Bootstrap:    true,
		Replicas:     []types.Replica{{NodeID: 1, Addr: addr}},
		ApplyTimeout: 2 * time.Second,
	}, engine)
	require.NoError(t, err)
	t.Cleanup(func() { group.Close() })

	require.Eventually(t, group.IsLeader, 3*time.Second, 20*time.Millisecond)

	return group, engine
}

func TestSingleNodeGroupCommitsWrite(t *testing.T) {
	group, engine := newSingleNodeGroup(t)

	resp, err := engine.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, group)
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.Code)
	require.NotZero(t, resp.IID)

	src, err := engine.Get("a", "")
	require.NoError(t, err)
	require.JSONEq(t, `{"n":1}`, string(src))
}

func TestSingleNodeGroupRejectsDuplicateCreate(t *testing.T) {
	group, engine := newSingleNodeGroup(t)

	_, err := engine.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, group)
	require.NoError(t, err)

	_, err = engine.Write(types.WriteRequest{
		WriteType: types.WriteCreate,
		Doc:       types.Document{ID: "a", Source: []byte(`{"n":1}`)},
	}, group)
	require.Error(t, err)
}
