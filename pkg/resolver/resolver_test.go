package resolver

import (
	"context"
	"testing"

	"github.com/cuemby/chubaodb-go/pkg/meta"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/hashicorp/raft"
	"github.com/stretchr/testify/require"
)

type fakeMetaClient struct {
	addrs map[uint64]string
}

func (f *fakeMetaClient) Register(ctx context.Context, info meta.NodeInfo) (meta.RegisterResult, error) {
	return meta.RegisterResult{}, nil
}
func (f *fakeMetaClient) GetCollectionByID(ctx context.Context, id uint32) (*types.Collection, error) {
	return nil, nil
}
func (f *fakeMetaClient) GetCollectionByName(ctx context.Context, name string) (*types.Collection, error) {
	return nil, nil
}
func (f *fakeMetaClient) GetPartition(ctx context.Context, cpid types.CPID) (*types.Partition, error) {
	return nil, nil
}
func (f *fakeMetaClient) ListPartitions(ctx context.Context, collectionID uint32) ([]types.Partition, error) {
	return nil, nil
}
func (f *fakeMetaClient) PutPServer(ctx context.Context, hb meta.Heartbeat) error { return nil }
func (f *fakeMetaClient) NodeAddr(ctx context.Context, nodeID uint64) (string, error) {
	addr, ok := f.addrs[nodeID]
	if !ok {
		return "", errNotFound
	}
	return addr, nil
}

var errNotFound = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

func TestServerAddrResolvesViaMetaClient(t *testing.T) {
	r := New(&fakeMetaClient{addrs: map[uint64]string{7: "10.0.0.5:8700"}})

	addr, err := r.ServerAddr(raft.ServerID("7"))
	require.NoError(t, err)
	require.Equal(t, raft.ServerAddress("10.0.0.5:8700"), addr)
}

func TestServerAddrRejectsNonNumericID(t *testing.T) {
	r := New(&fakeMetaClient{})

	_, err := r.ServerAddr(raft.ServerID("not-a-number"))
	require.Error(t, err)
}
