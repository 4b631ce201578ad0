package index

import (
	"testing"
	"time"

	"github.com/cuemby/chubaodb-go/pkg/kv"
	"github.com/cuemby/chubaodb-go/pkg/pserrors"
	"github.com/cuemby/chubaodb-go/pkg/types"
	"github.com/stretchr/testify/require"
)

func testCollection() *types.Collection {
	return &types.Collection{
		ID:   1,
		Name: "widgets",
		Fields: []types.Field{
			{Name: "n", Type: types.FieldInt},
			{Name: "body", Type: types.FieldText},
		},
		ScalarFieldIndex: []string{"n", "body"},
	}
}

func putDoc(t *testing.T, store kv.Store, iid uint32, source string) {
	t.Helper()
	doc := types.Document{ID: "a", SortKey: "", Version: 1, Source: []byte(source)}
	enc, err := types.EncodeDocument(doc)
	require.NoError(t, err)
	require.NoError(t, store.Put(kv.DocKey(iid), enc))
}

func waitForCount(t *testing.T, e *Engine, n uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Count() == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, n, e.Count())
}

func TestEngineUpdateThenQuery(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	putDoc(t, store, 1, `{"n":1,"body":"hello world"}`)
	e.Write(Event{Kind: EventUpdate, Prior: 0, New: 1})
	waitForCount(t, e, 1)

	hits, total, err := e.Query("n:1", nil, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
	require.Len(t, hits, 1)
	require.Equal(t, uint32(1), hits[0].IID)

	hits, total, err = e.Query("n:2", nil, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
	require.Empty(t, hits)
}

func TestEngineOverwriteRemovesOldPostings(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	putDoc(t, store, 1, `{"n":1,"body":"hello world"}`)
	e.Write(Event{Kind: EventUpdate, Prior: 0, New: 1})
	waitForCount(t, e, 1)

	putDoc(t, store, 2, `{"n":2,"body":"hello world"}`)
	e.Write(Event{Kind: EventUpdate, Prior: 1, New: 2})
	waitForCount(t, e, 1)

	_, total, err := e.Query("n:1", nil, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), total)
	_, total, err = e.Query("n:2", nil, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), total)
}

func TestEngineDeleteIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	e.Write(Event{Kind: EventDelete, Prior: 42})
	waitForCount(t, e, 0)
	require.False(t, e.Exist(42))
}

func TestEngineSkipsMissingAndNullFields(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	putDoc(t, store, 1, `{"n":null}`)
	e.Write(Event{Kind: EventUpdate, Prior: 0, New: 1})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, uint64(0), e.Count())
}

func TestEngineFilterStar(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	putDoc(t, store, 1, `{"n":1,"body":"a"}`)
	e.Write(Event{Kind: EventUpdate, Prior: 0, New: 1})
	waitForCount(t, e, 1)

	bm, total, err := e.Filter("*", nil)
	require.NoError(t, err)
	require.Nil(t, bm)
	require.Equal(t, uint64(1), total)
}

func TestEngineQueryNoIndexedFieldsRejected(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	c := &types.Collection{ID: 1, Name: "widgets", Fields: []types.Field{{Name: "n", Type: types.FieldInt}}}
	e, err := Open(c, store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()

	_, _, err = e.Query("*", nil, 10)
	require.Error(t, err)
	require.Equal(t, types.SpaceNoIndex, pserrors.CodeOf(err))

	_, _, err = e.Filter("*", nil)
	require.Error(t, err)
	require.Equal(t, types.SpaceNoIndex, pserrors.CodeOf(err))
}

func TestSchemaRejectsVectorField(t *testing.T) {
	c := &types.Collection{
		Fields:           []types.Field{{Name: "v", Type: types.FieldVector}},
		ScalarFieldIndex: []string{"v"},
	}
	_, err := buildSchema(c)
	require.Error(t, err)
}

func TestSchemaSpaceNoIndex(t *testing.T) {
	c := &types.Collection{Fields: []types.Field{{Name: "v", Type: types.FieldVector}}}
	schema, err := buildSchema(c)
	require.NoError(t, err)
	require.Error(t, schema.checkIndex())
}

func TestCommitPolicySkipsAfterThreshold(t *testing.T) {
	dir := t.TempDir()
	store, err := kv.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	e, err := Open(testCollection(), store, t.TempDir())
	require.NoError(t, err)
	defer e.Stop()
	e.flushThreshold = 2

	require.NoError(t, e.Flush()) // activity=1, commits
	require.NoError(t, e.Flush()) // activity=2, commits
	require.NoError(t, e.Flush()) // activity=3 > 2, skipped but still nil error
}
