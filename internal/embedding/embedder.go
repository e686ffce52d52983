// Package embedding turns processed document chunks into stored
// vectors and runs semantic search over them.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"

	"golang.org/x/time/rate"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/llm"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/pkg/types"
)

// Asymmetric embedding models distinguish stored text from queries by
// prefix. The prefix is used for encoding only; stored documents keep
// their original text.
const (
	passagePrefix = "passage: "
	queryPrefix   = "query: "
)

// embedRequestsPerSecond paces calls to the embedding endpoint.
const embedRequestsPerSecond = 10

// Embedder encodes chunks through an external model and writes them
// to the vector store.
type Embedder struct {
	gen       llm.EmbeddingGenerator
	store     vectorstore.Store
	batchSize int
	limiter   *rate.Limiter
}

// NewEmbedder wires a generator and store together.
func NewEmbedder(gen llm.EmbeddingGenerator, store vectorstore.Store, cfg *config.Config) *Embedder {
	batchSize := cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Embedder{
		gen:       gen,
		store:     store,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Limit(embedRequestsPerSecond), batchSize),
	}
}

// ChunkID derives the stable key for a chunk from its source path,
// document content hash, and position. Re-ingesting unchanged content
// produces the same IDs, which is what makes embedding idempotent.
func ChunkID(sourcePath, contentHash string, index int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", sourcePath, contentHash, index)))
	return hex.EncodeToString(sum[:])[:32]
}

type pendingChunk struct {
	id       string
	text     string
	metadata map[string]any
}

// EmbedDocuments encodes every not-yet-stored chunk of docs and
// returns the number of new chunks written. Chunks already present in
// the store, and duplicates within the batch, are skipped.
func (e *Embedder) EmbedDocuments(ctx context.Context, docs []*types.ProcessedDocument) (int, error) {
	var pending []pendingChunk
	seen := map[string]bool{}

	for _, doc := range docs {
		for _, chunk := range doc.Chunks {
			id := ChunkID(doc.SourcePath, doc.ContentHash, chunk.Index)
			if seen[id] {
				continue
			}
			seen[id] = true

			exists, err := e.store.HasID(ctx, vectorstore.DefaultCollection, id)
			if err != nil {
				return 0, fmt.Errorf("embedding: check chunk %s: %w", id, err)
			}
			if exists {
				continue
			}

			pending = append(pending, pendingChunk{
				id:   id,
				text: chunk.Content,
				metadata: map[string]any{
					"source":       doc.SourcePath,
					"title":        doc.Title,
					"chunk_index":  chunk.Index,
					"entity_type":  doc.EntityType,
					"content_hash": doc.ContentHash,
				},
			})
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := e.store.EnsureCollection(ctx, vectorstore.DefaultCollection); err != nil {
		return 0, err
	}

	total := 0
	for start := 0; start < len(pending); start += e.batchSize {
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		ids := make([]string, len(batch))
		texts := make([]string, len(batch))
		metas := make([]map[string]any, len(batch))
		embeddings := make([][]float64, len(batch))
		for i, p := range batch {
			if err := e.limiter.Wait(ctx); err != nil {
				return total, err
			}
			vec, err := e.gen.Embed(ctx, passagePrefix+p.text)
			if err != nil {
				return total, fmt.Errorf("embedding: encode chunk %s: %w", p.id, err)
			}
			ids[i] = p.id
			texts[i] = p.text
			metas[i] = p.metadata
			embeddings[i] = widen(vec)
		}

		if err := e.store.AddDocuments(ctx, vectorstore.DefaultCollection, ids, embeddings, texts, metas); err != nil {
			return total, fmt.Errorf("embedding: store batch: %w", err)
		}
		total += len(batch)
		log.Printf("embedding: stored %d/%d chunks", total, len(pending))
	}
	return total, nil
}

// SearchResult is one semantic search hit.
type SearchResult struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Search embeds the query and returns the n nearest stored chunks,
// closest first.
func (e *Embedder) Search(ctx context.Context, query string, n int) ([]SearchResult, error) {
	vec, err := e.gen.Embed(ctx, queryPrefix+query)
	if err != nil {
		return nil, fmt.Errorf("embedding: encode query: %w", err)
	}

	res, err := e.store.Query(ctx, vectorstore.DefaultCollection, widen(vec), n)
	if err != nil {
		return nil, fmt.Errorf("embedding: query: %w", err)
	}
	if len(res.IDs) == 0 {
		return nil, nil
	}

	out := make([]SearchResult, 0, len(res.IDs[0]))
	for i, id := range res.IDs[0] {
		r := SearchResult{ID: id}
		if len(res.Documents) > 0 && i < len(res.Documents[0]) {
			r.Document = res.Documents[0][i]
		}
		if len(res.Metadatas) > 0 && i < len(res.Metadatas[0]) {
			r.Metadata = res.Metadatas[0][i]
		}
		if len(res.Distances) > 0 && i < len(res.Distances[0]) {
			r.Distance = res.Distances[0][i]
		}
		out = append(out, r)
	}
	return out, nil
}

func widen(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
