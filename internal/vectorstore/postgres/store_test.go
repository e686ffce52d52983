package postgres

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

// openIntegrationStore connects to a live database named by
// PKVAULT_TEST_POSTGRES_DSN, skipping the test when unset.
func openIntegrationStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("PKVAULT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PKVAULT_TEST_POSTGRES_DSN not set")
	}
	store, err := Open(context.Background(), dsn, "pkvault_chunks_test")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = store.db.Exec("DROP TABLE IF EXISTS pkvault_chunks_test")
		_ = store.Close()
	})
	return store
}

func TestIntegrationRoundTrip(t *testing.T) {
	store := openIntegrationStore(t)
	ctx := context.Background()

	ids := []string{"a", "b", "c"}
	embeddings := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	docs := []string{"doc a", "doc b", "doc c"}
	metas := []map[string]any{
		{"title": "A", "source": "/a"},
		{"title": "B", "source": "/b"},
		{"title": "C", "source": "/c"},
	}
	require.NoError(t, store.AddDocuments(ctx, vectorstore.DefaultCollection, ids, embeddings, docs, metas))

	count, err := store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Upsert replaces rather than duplicating.
	require.NoError(t, store.AddDocuments(ctx, vectorstore.DefaultCollection,
		[]string{"a"}, [][]float64{{0, 1}}, []string{"doc a v2"}, []map[string]any{{"title": "A2"}}))
	count, err = store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ok, err := store.HasID(ctx, vectorstore.DefaultCollection, "b")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := store.Query(ctx, vectorstore.DefaultCollection, []float64{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	require.Len(t, res.IDs[0], 2)
	assert.Less(t, res.Distances[0][0], res.Distances[0][1])

	require.NoError(t, store.DeleteByIDs(ctx, vectorstore.DefaultCollection, []string{"b", "ghost"}))
	count, err = store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOpenRejectsBadTableName(t *testing.T) {
	_, err := Open(context.Background(), "postgres://ignored", "chunks; DROP TABLE users")
	assert.ErrorIs(t, err, vectorstore.ErrInvalidInput)
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), "", "pkvault_chunks")
	assert.ErrorIs(t, err, vectorstore.ErrInvalidInput)
}

func TestIdentRe(t *testing.T) {
	assert.True(t, identRe.MatchString("pkvault_chunks"))
	assert.True(t, identRe.MatchString("_internal"))
	assert.False(t, identRe.MatchString("1table"))
	assert.False(t, identRe.MatchString("bad-name"))
	assert.False(t, identRe.MatchString(`chunks"`))
}

func TestToFloat32(t *testing.T) {
	got := toFloat32([]float64{0.5, -2, math.Pi})
	require.Len(t, got, 3)
	assert.Equal(t, float32(0.5), got[0])
	assert.Equal(t, float32(-2), got[1])
	assert.InDelta(t, float32(math.Pi), got[2], 1e-6)
}

func TestEmbeddingCodec(t *testing.T) {
	in := []float64{0.25, -1.5, math.Pi}
	out, err := deserializeEmbedding(serializeEmbedding(in), len(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = deserializeEmbedding([]byte{0, 1, 2}, 1)
	assert.Error(t, err)
	_, err = deserializeEmbedding(nil, 0)
	assert.Error(t, err)
}

func TestUnmarshalMetadata(t *testing.T) {
	meta := unmarshalMetadata(`{"title":"T","n":3}`)
	assert.Equal(t, "T", meta["title"])
	assert.Equal(t, float64(3), meta["n"])

	assert.Empty(t, unmarshalMetadata(""))
	assert.Empty(t, unmarshalMetadata("not json"))
}
