// Package dual composes two vector stores into one: a primary that
// serves every read and must succeed on writes, and a mirror that
// receives best-effort copies of the writes. A mirror failure is
// logged and swallowed so a flaky warehouse never blocks local
// ingestion.
package dual

import (
	"context"
	"log"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

// Store fans writes out to both backends and reads from the primary.
type Store struct {
	primary vectorstore.Store
	mirror  vectorstore.Store
}

var _ vectorstore.Store = (*Store)(nil)

// New wires a primary and a mirror into a single Store.
func New(primary, mirror vectorstore.Store) *Store {
	return &Store{primary: primary, mirror: mirror}
}

// EnsureCollection ensures the collection on both backends. The
// primary is authoritative; the mirror is best effort.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	if err := s.primary.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	if err := s.mirror.EnsureCollection(ctx, collection); err != nil {
		log.Printf("dualstore: mirror ensure collection %s failed: %v", collection, err)
	}
	return nil
}

// AddDocuments writes to the primary first and mirrors on success.
func (s *Store) AddDocuments(ctx context.Context, collection string, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]any) error {
	if err := s.primary.AddDocuments(ctx, collection, ids, embeddings, documents, metadatas); err != nil {
		return err
	}
	if err := s.mirror.AddDocuments(ctx, collection, ids, embeddings, documents, metadatas); err != nil {
		log.Printf("dualstore: mirror write of %d documents failed: %v", len(ids), err)
	}
	return nil
}

// Query reads from the primary only.
func (s *Store) Query(ctx context.Context, collection string, embedding []float64, n int) (*vectorstore.QueryResult, error) {
	return s.primary.Query(ctx, collection, embedding, n)
}

// GetAll reads from the primary only.
func (s *Store) GetAll(ctx context.Context, collection string) (*vectorstore.CollectionData, error) {
	return s.primary.GetAll(ctx, collection)
}

// Count reads from the primary only.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	return s.primary.Count(ctx, collection)
}

// HasID reads from the primary only. Dedup decisions therefore follow
// the primary even when the mirror has drifted.
func (s *Store) HasID(ctx context.Context, collection string, id string) (bool, error) {
	return s.primary.HasID(ctx, collection, id)
}

// GetByIDs reads from the primary only.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string, include vectorstore.Include) (*vectorstore.CollectionData, error) {
	return s.primary.GetByIDs(ctx, collection, ids, include)
}

// DeleteByIDs deletes from the primary and best-effort from the
// mirror.
func (s *Store) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if err := s.primary.DeleteByIDs(ctx, collection, ids); err != nil {
		return err
	}
	if err := s.mirror.DeleteByIDs(ctx, collection, ids); err != nil {
		log.Printf("dualstore: mirror delete of %d documents failed: %v", len(ids), err)
	}
	return nil
}

// Close closes both backends, returning the first error seen.
func (s *Store) Close() error {
	errPrimary := s.primary.Close()
	if err := s.mirror.Close(); err != nil {
		log.Printf("dualstore: mirror close failed: %v", err)
	}
	return errPrimary
}
