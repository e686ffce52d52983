package embedding

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/internal/vectorstore/sqlite"
	"github.com/pkvault/pkvault/pkg/types"
)

// fakeGenerator returns a deterministic vector per text and records
// what it was asked to encode.
type fakeGenerator struct {
	calls []string
}

func (f *fakeGenerator) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	// Vector derived from text length so distinct texts differ.
	return []float32{float32(len(text)), 1, 0.5}, nil
}

func (f *fakeGenerator) Model() string { return "fake" }

func newTestEmbedder(t *testing.T) (*Embedder, *fakeGenerator, vectorstore.Store) {
	t.Helper()
	store, err := sqlite.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gen := &fakeGenerator{}
	return NewEmbedder(gen, store, config.Default()), gen, store
}

func testDoc(source, hash string, chunks ...string) *types.ProcessedDocument {
	doc := types.NewProcessedDocument()
	doc.Title = "Doc " + hash
	doc.SourcePath = source
	doc.ContentHash = hash
	doc.EntityType = "Document"
	for i, c := range chunks {
		doc.Chunks = append(doc.Chunks, types.Chunk{Content: c, Index: i})
	}
	return doc
}

func TestChunkIDStableAndDistinct(t *testing.T) {
	a := ChunkID("/notes/a.md", "hash1", 0)
	assert.Equal(t, a, ChunkID("/notes/a.md", "hash1", 0))
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, ChunkID("/notes/a.md", "hash1", 1))
	assert.NotEqual(t, a, ChunkID("/notes/b.md", "hash1", 0))
	assert.NotEqual(t, a, ChunkID("/notes/a.md", "hash2", 0))
}

func TestEmbedDocumentsStoresChunks(t *testing.T) {
	emb, gen, store := newTestEmbedder(t)
	ctx := context.Background()

	n, err := emb.EmbedDocuments(ctx, []*types.ProcessedDocument{
		testDoc("/a.md", "h1", "first chunk", "second chunk"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := store.Count(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Encoding used the passage prefix.
	require.Len(t, gen.calls, 2)
	assert.Equal(t, "passage: first chunk", gen.calls[0])

	// Stored text carries no prefix.
	data, err := store.GetAll(ctx, vectorstore.DefaultCollection)
	require.NoError(t, err)
	for _, d := range data.Documents {
		assert.False(t, strings.HasPrefix(d, "passage: "))
	}
	assert.Equal(t, "h1", data.Metadatas[0]["content_hash"])
	assert.Equal(t, "/a.md", data.Metadatas[0]["source"])
}

func TestEmbedDocumentsIdempotent(t *testing.T) {
	emb, gen, _ := newTestEmbedder(t)
	ctx := context.Background()
	docs := []*types.ProcessedDocument{testDoc("/a.md", "h1", "only chunk")}

	n, err := emb.EmbedDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Same content again: nothing new, no model calls.
	callsBefore := len(gen.calls)
	n, err = emb.EmbedDocuments(ctx, docs)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, callsBefore, len(gen.calls))
}

func TestEmbedDocumentsInBatchDedup(t *testing.T) {
	emb, _, _ := newTestEmbedder(t)

	// Two documents with the same source and hash produce the same
	// chunk IDs; only one copy is embedded.
	n, err := emb.EmbedDocuments(context.Background(), []*types.ProcessedDocument{
		testDoc("/a.md", "h1", "same chunk"),
		testDoc("/a.md", "h1", "same chunk"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmbedDocumentsNothingToDo(t *testing.T) {
	emb, _, _ := newTestEmbedder(t)
	n, err := emb.EmbedDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchUsesQueryPrefix(t *testing.T) {
	emb, gen, _ := newTestEmbedder(t)
	ctx := context.Background()

	_, err := emb.EmbedDocuments(ctx, []*types.ProcessedDocument{
		testDoc("/a.md", "h1", "kubernetes rollout notes"),
	})
	require.NoError(t, err)

	results, err := emb.Search(ctx, "rollout", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "kubernetes rollout notes", results[0].Document)
	assert.Equal(t, "Doc h1", results[0].Metadata["title"])

	assert.Equal(t, "query: rollout", gen.calls[len(gen.calls)-1])
}

func TestSearchEmptyStore(t *testing.T) {
	emb, _, _ := newTestEmbedder(t)
	results, err := emb.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}
