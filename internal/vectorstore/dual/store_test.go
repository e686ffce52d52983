package dual

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

// fakeStore records calls and can be told to fail.
type fakeStore struct {
	adds    int
	deletes int
	queries int
	closed  bool
	fail    error
}

var _ vectorstore.Store = (*fakeStore)(nil)

func (f *fakeStore) EnsureCollection(context.Context, string) error { return f.fail }

func (f *fakeStore) AddDocuments(context.Context, string, []string, [][]float64, []string, []map[string]any) error {
	if f.fail != nil {
		return f.fail
	}
	f.adds++
	return nil
}

func (f *fakeStore) Query(context.Context, string, []float64, int) (*vectorstore.QueryResult, error) {
	f.queries++
	return &vectorstore.QueryResult{IDs: [][]string{{"from-this-store"}}}, f.fail
}

func (f *fakeStore) GetAll(context.Context, string) (*vectorstore.CollectionData, error) {
	return &vectorstore.CollectionData{}, f.fail
}

func (f *fakeStore) Count(context.Context, string) (int, error) { return 7, f.fail }

func (f *fakeStore) HasID(context.Context, string, string) (bool, error) { return true, f.fail }

func (f *fakeStore) GetByIDs(context.Context, string, []string, vectorstore.Include) (*vectorstore.CollectionData, error) {
	return &vectorstore.CollectionData{}, f.fail
}

func (f *fakeStore) DeleteByIDs(context.Context, string, []string) error {
	if f.fail != nil {
		return f.fail
	}
	f.deletes++
	return nil
}

func (f *fakeStore) Close() error {
	f.closed = true
	return f.fail
}

func TestWritesReachBothStores(t *testing.T) {
	primary := &fakeStore{}
	mirror := &fakeStore{}
	store := New(primary, mirror)
	ctx := context.Background()

	require.NoError(t, store.AddDocuments(ctx, "c", []string{"a"}, [][]float64{{1}}, []string{"d"}, nil))
	assert.Equal(t, 1, primary.adds)
	assert.Equal(t, 1, mirror.adds)

	require.NoError(t, store.DeleteByIDs(ctx, "c", []string{"a"}))
	assert.Equal(t, 1, primary.deletes)
	assert.Equal(t, 1, mirror.deletes)
}

func TestMirrorFailureSwallowed(t *testing.T) {
	primary := &fakeStore{}
	mirror := &fakeStore{fail: errors.New("warehouse down")}
	store := New(primary, mirror)
	ctx := context.Background()

	assert.NoError(t, store.AddDocuments(ctx, "c", []string{"a"}, [][]float64{{1}}, []string{"d"}, nil))
	assert.Equal(t, 1, primary.adds)

	assert.NoError(t, store.DeleteByIDs(ctx, "c", []string{"a"}))
	assert.NoError(t, store.EnsureCollection(ctx, "c"))
}

func TestPrimaryFailurePropagates(t *testing.T) {
	boom := errors.New("disk full")
	primary := &fakeStore{fail: boom}
	mirror := &fakeStore{}
	store := New(primary, mirror)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddDocuments(ctx, "c", []string{"a"}, [][]float64{{1}}, []string{"d"}, nil), boom)
	// Mirror never sees the write when the primary fails.
	assert.Zero(t, mirror.adds)

	assert.ErrorIs(t, store.DeleteByIDs(ctx, "c", []string{"a"}), boom)
	assert.Zero(t, mirror.deletes)
}

func TestReadsUsePrimaryOnly(t *testing.T) {
	primary := &fakeStore{}
	mirror := &fakeStore{}
	store := New(primary, mirror)
	ctx := context.Background()

	res, err := store.Query(ctx, "c", []float64{1}, 3)
	require.NoError(t, err)
	assert.Equal(t, "from-this-store", res.IDs[0][0])
	assert.Equal(t, 1, primary.queries)
	assert.Zero(t, mirror.queries)

	count, err := store.Count(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 7, count)

	ok, err := store.HasID(ctx, "c", "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseClosesBoth(t *testing.T) {
	primary := &fakeStore{}
	mirror := &fakeStore{fail: errors.New("already closed")}
	store := New(primary, mirror)

	assert.NoError(t, store.Close())
	assert.True(t, primary.closed)
	assert.True(t, mirror.closed)
}
