package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoltStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	key := DocKey(1)
	require.NoError(t, s.Put(key, []byte("hello")))

	v, ok, err := s.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", string(v))

	require.NoError(t, s.Delete(key))
	_, ok, err = s.Get(key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltStoreBatchIsAtomic(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	err = s.Batch([]Op{
		PutOp(DocKey(1), []byte("a")),
		PutOp(MetaRaftIndexKey(), EncodeUint64(1)),
	})
	require.NoError(t, err)

	v, ok, err := s.Get(MetaRaftIndexKey())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1), DecodeUint64(v))
}

func TestBoltStorePrefixIterateOrdersByIID(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	for _, iid := range []uint32{3, 1, 2} {
		require.NoError(t, s.Put(DocKey(iid), []byte("doc")))
	}

	var seen []uint32
	err = s.PrefixIterate(DocPrefix(), func(key, value []byte) (bool, error) {
		seen = append(seen, IIDFromDocKey(key))
		return true, nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestBoltStoreSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.Put(DocKey(1), []byte("a")))
	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Equal(t, []byte("a"), snap[string(DocKey(1))])
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()
	snap2, err := s2.Snapshot()
	require.NoError(t, err)
	require.Equal(t, snap, snap2)
}

func TestBoltStoreLoadReplacesContents(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(DocKey(99), []byte("stale")))

	require.NoError(t, s.Load(map[string][]byte{
		string(DocKey(1)): []byte("fresh"),
	}))

	_, ok, err := s.Get(DocKey(99))
	require.NoError(t, err)
	require.False(t, ok, "Load must wipe prior contents")

	v, ok, err := s.Get(DocKey(1))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fresh", string(v))
}
