// Package vectorstore defines the uniform interface over the
// interchangeable vector storage backends: the local SQLite index, the
// Postgres warehouse mirror, and the dual-write composition of both.
//
// The interfaces are deliberately small; each backend lives in its own
// subpackage and the dual variant composes two Stores rather than
// extending either.
package vectorstore

import (
	"context"
	"errors"
)

// DefaultCollection is the logical namespace used by the ingestion
// pipeline unless a caller asks for another one.
const DefaultCollection = "documents"

// Sentinel errors shared by every backend.
var (
	// ErrNotFound is returned when a requested ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned for malformed arguments (empty IDs,
	// mismatched batch lengths).
	ErrInvalidInput = errors.New("invalid input")
)

// QueryResult holds nearest-neighbor results as parallel slices, one
// result set per query embedding. The current pipeline always queries
// with a batch of one, so each outer slice has a single element.
// Distances are cosine distances sorted ascending: 0 means identical
// direction.
type QueryResult struct {
	IDs       [][]string
	Documents [][]string
	Metadatas [][]map[string]any
	Distances [][]float64
}

// CollectionData is a bulk read of a collection: parallel slices, with
// Embeddings populated only when requested via Include.
type CollectionData struct {
	IDs        []string
	Documents  []string
	Metadatas  []map[string]any
	Embeddings [][]float64
}

// Include selects which columns a GetByIDs call should materialize.
type Include struct {
	Documents  bool
	Metadatas  bool
	Embeddings bool
}

// Store is the uniform CRUD/query interface over vector backends.
type Store interface {
	// EnsureCollection creates the logical namespace if it does not
	// already exist. Idempotent.
	EnsureCollection(ctx context.Context, collection string) error

	// AddDocuments upserts documents with their embeddings. The ids,
	// embeddings, documents and metadatas slices are parallel;
	// metadatas may be nil.
	AddDocuments(ctx context.Context, collection string, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]any) error

	// Query returns the n nearest neighbors of embedding, ranked
	// ascending by cosine distance.
	Query(ctx context.Context, collection string, embedding []float64, n int) (*QueryResult, error)

	// GetAll returns every document in the collection, embeddings
	// included.
	GetAll(ctx context.Context, collection string) (*CollectionData, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// HasID reports whether the ID exists in the collection. It gates
	// embedding-time dedup, so false negatives are not acceptable.
	HasID(ctx context.Context, collection string, id string) (bool, error)

	// GetByIDs returns the requested documents; IDs that do not exist
	// are simply absent from the result.
	GetByIDs(ctx context.Context, collection string, ids []string, include Include) (*CollectionData, error)

	// DeleteByIDs removes documents by ID. Missing IDs are ignored.
	DeleteByIDs(ctx context.Context, collection string, ids []string) error

	// Close releases backend resources.
	Close() error
}
