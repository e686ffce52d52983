package sqlite

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addDocs(t *testing.T, store *Store, ids []string, embeddings [][]float64) {
	t.Helper()
	docs := make([]string, len(ids))
	metas := make([]map[string]any, len(ids))
	for i, id := range ids {
		docs[i] = "content of " + id
		metas[i] = map[string]any{"title": "Title " + id, "source": "/src/" + id}
	}
	require.NoError(t, store.AddDocuments(context.Background(), vectorstore.DefaultCollection, ids, embeddings, docs, metas))
}

func TestAddAndCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"a", "b"}, [][]float64{{1, 0, 0}, {0, 1, 0}})

	count, err := store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsertOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"a"}, [][]float64{{1, 0, 0}})
	addDocs(t, store, []string{"a"}, [][]float64{{0, 0, 1}})

	count, err := store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	data, err := store.GetAll(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	require.Len(t, data.Embeddings, 1)
	assert.Equal(t, []float64{0, 0, 1}, data.Embeddings[0])
}

func TestHasID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"present"}, [][]float64{{1, 0}})

	ok, err := store.HasID(ctx, vectorstore.DefaultCollection, "present")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasID(ctx, vectorstore.DefaultCollection, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueryRanksByCosineDistance(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"x", "y", "diag"}, [][]float64{
		{1, 0},
		{0, 1},
		{1, 1},
	})

	res, err := store.Query(ctx, vectorstore.DefaultCollection, []float64{1, 0.1}, 2)
	require.NoError(t, err)

	require.Len(t, res.IDs, 1)
	require.Len(t, res.IDs[0], 2)
	assert.Equal(t, "x", res.IDs[0][0])
	assert.Equal(t, "diag", res.IDs[0][1])
	assert.Less(t, res.Distances[0][0], res.Distances[0][1])
	assert.GreaterOrEqual(t, res.Distances[0][0], 0.0)
	assert.Equal(t, "content of x", res.Documents[0][0])
	assert.Equal(t, "Title x", res.Metadatas[0][0]["title"])
}

func TestQueryEmptyCollection(t *testing.T) {
	store := openTestStore(t)

	res, err := store.Query(context.Background(), vectorstore.DefaultCollection, []float64{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	assert.Empty(t, res.IDs[0])
}

func TestGetByIDsInclude(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"a", "b", "c"}, [][]float64{{1, 0}, {0, 1}, {1, 1}})

	data, err := store.GetByIDs(ctx, vectorstore.DefaultCollection, []string{"a", "c", "ghost"},
		vectorstore.Include{Documents: true, Embeddings: true})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "c"}, data.IDs)
	assert.Len(t, data.Documents, 2)
	assert.Len(t, data.Embeddings, 2)
	assert.Empty(t, data.Metadatas)
}

func TestDeleteByIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	addDocs(t, store, []string{"a", "b"}, [][]float64{{1, 0}, {0, 1}})
	require.NoError(t, store.DeleteByIDs(ctx, vectorstore.DefaultCollection, []string{"a", "missing"}))

	count, err := store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMismatchedBatchRejected(t *testing.T) {
	store := openTestStore(t)

	err := store.AddDocuments(context.Background(), vectorstore.DefaultCollection,
		[]string{"a", "b"}, [][]float64{{1}}, []string{"only one"}, nil)
	assert.ErrorIs(t, err, vectorstore.ErrInvalidInput)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float64{0.25, -1.5, math.Pi, 0}
	out, err := deserializeEmbedding(serializeEmbedding(in), len(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = deserializeEmbedding([]byte{1, 2, 3}, 2)
	assert.Error(t, err)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float64{0, 0}, []float64{1, 0}), 1e-9)
}
