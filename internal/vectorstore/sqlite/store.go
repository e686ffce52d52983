// Package sqlite implements the local persistent vector store backend
// on an embedded SQLite database. Embeddings are stored as little-endian
// float64 BLOBs; similarity queries rank the collection in-process by
// cosine distance, which is the embedded-index tradeoff this store
// makes: no server, no extension, fine at personal-vault scale.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name       TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chunks (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	title      TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	metadata   TEXT NOT NULL DEFAULT '{}',
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);
`

// Store is the SQLite-backed vector store.
type Store struct {
	db *sql.DB
}

var _ vectorstore.Store = (*Store)(nil)

// Open creates (or opens) the database file under dataPath and applies
// the schema.
func Open(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}
	dbPath := filepath.Join(dataPath, "pkvault.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureCollection registers the collection name. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is required", vectorstore.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, collection)
	if err != nil {
		return fmt.Errorf("sqlite: ensure collection: %w", err)
	}
	return nil
}

// AddDocuments upserts documents and their embeddings in one
// transaction.
func (s *Store) AddDocuments(ctx context.Context, collection string, ids []string, embeddings [][]float64, documents []string, metadatas []map[string]any) error {
	if len(ids) == 0 {
		return nil
	}
	if len(embeddings) != len(ids) || len(documents) != len(ids) {
		return fmt.Errorf("%w: ids/embeddings/documents lengths differ", vectorstore.ErrInvalidInput)
	}
	if metadatas != nil && len(metadatas) != len(ids) {
		return fmt.Errorf("%w: metadatas length differs from ids", vectorstore.ErrInvalidInput)
	}
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	const upsert = `
		INSERT INTO chunks (collection, id, content, title, source, metadata, embedding, dimension)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			content = excluded.content,
			title = excluded.title,
			source = excluded.source,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			dimension = excluded.dimension
	`
	stmt, err := tx.PrepareContext(ctx, upsert)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty document ID", vectorstore.ErrInvalidInput)
		}
		if len(embeddings[i]) == 0 {
			return fmt.Errorf("%w: empty embedding for %s", vectorstore.ErrInvalidInput, id)
		}

		meta := map[string]any{}
		if metadatas != nil && metadatas[i] != nil {
			meta = metadatas[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("sqlite: marshal metadata for %s: %w", id, err)
		}
		title, _ := meta["title"].(string)
		source, _ := meta["source"].(string)

		blob := serializeEmbedding(embeddings[i])
		if _, err := stmt.ExecContext(ctx, collection, id, documents[i], title, source, string(metaJSON), blob, len(embeddings[i])); err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Query ranks the whole collection by cosine distance to embedding and
// returns the n closest entries.
func (s *Store) Query(ctx context.Context, collection string, embedding []float64, n int) (*vectorstore.QueryResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", vectorstore.ErrInvalidInput)
	}

	data, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	type scored struct {
		idx      int
		distance float64
	}
	ranked := make([]scored, 0, len(data.IDs))
	for i := range data.IDs {
		ranked = append(ranked, scored{i, cosineDistance(embedding, data.Embeddings[i])})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	res := &vectorstore.QueryResult{
		IDs:       [][]string{make([]string, 0, len(ranked))},
		Documents: [][]string{make([]string, 0, len(ranked))},
		Metadatas: [][]map[string]any{make([]map[string]any, 0, len(ranked))},
		Distances: [][]float64{make([]float64, 0, len(ranked))},
	}
	for _, r := range ranked {
		res.IDs[0] = append(res.IDs[0], data.IDs[r.idx])
		res.Documents[0] = append(res.Documents[0], data.Documents[r.idx])
		res.Metadatas[0] = append(res.Metadatas[0], data.Metadatas[r.idx])
		res.Distances[0] = append(res.Distances[0], r.distance)
	}
	return res, nil
}

// GetAll loads the full collection, embeddings included.
func (s *Store) GetAll(ctx context.Context, collection string) (*vectorstore.CollectionData, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding, dimension FROM chunks WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get all: %w", err)
	}
	defer rows.Close()

	data := &vectorstore.CollectionData{}
	for rows.Next() {
		var (
			id, content, metaJSON string
			blob                  []byte
			dimension             int
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		embedding, err := deserializeEmbedding(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("sqlite: embedding for %s: %w", id, err)
		}
		data.IDs = append(data.IDs, id)
		data.Documents = append(data.Documents, content)
		data.Metadatas = append(data.Metadatas, unmarshalMetadata(metaJSON))
		data.Embeddings = append(data.Embeddings, embedding)
	}
	return data, rows.Err()
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return count, nil
}

// HasID is a point lookup for the given document ID.
func (s *Store) HasID(ctx context.Context, collection string, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM chunks WHERE collection = ? AND id = ? LIMIT 1`, collection, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: has id: %w", err)
	}
	return true, nil
}

// GetByIDs fetches specific documents. IDs that do not exist are
// silently absent from the result.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string, include vectorstore.Include) (*vectorstore.CollectionData, error) {
	data := &vectorstore.CollectionData{}
	if len(ids) == 0 {
		return data, nil
	}

	query := `SELECT id, content, metadata, embedding, dimension FROM chunks WHERE collection = ? AND id IN (?` +
		repeatPlaceholder(len(ids)-1) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, content, metaJSON string
			blob                  []byte
			dimension             int
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("sqlite: scan row: %w", err)
		}
		data.IDs = append(data.IDs, id)
		if include.Documents {
			data.Documents = append(data.Documents, content)
		}
		if include.Metadatas {
			data.Metadatas = append(data.Metadatas, unmarshalMetadata(metaJSON))
		}
		if include.Embeddings {
			embedding, err := deserializeEmbedding(blob, dimension)
			if err != nil {
				return nil, fmt.Errorf("sqlite: embedding for %s: %w", id, err)
			}
			data.Embeddings = append(data.Embeddings, embedding)
		}
	}
	return data, rows.Err()
}

// DeleteByIDs removes documents by ID; missing IDs are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM chunks WHERE collection = ? AND id IN (?` + repeatPlaceholder(len(ids)-1) + `)`
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: delete by ids: %w", err)
	}
	return nil
}

// repeatPlaceholder returns n copies of ", ?" for IN-list construction.
func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		out = append(out, ", ?"...)
	}
	return string(out)
}

func unmarshalMetadata(metaJSON string) map[string]any {
	meta := map[string]any{}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &meta)
	}
	return meta
}

// serializeEmbedding converts a float64 slice to little-endian bytes.
func serializeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*8)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// deserializeEmbedding converts little-endian bytes back to float64s,
// validating the buffer against the stored dimension.
func deserializeEmbedding(buf []byte, dimension int) ([]float64, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension: %d", dimension)
	}
	if len(buf) != dimension*8 {
		return nil, fmt.Errorf("buffer size mismatch: expected %d bytes, got %d", dimension*8, len(buf))
	}
	embedding := make([]float64, dimension)
	for i := 0; i < dimension; i++ {
		embedding[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return embedding, nil
}

// cosineDistance is 1 - cosine similarity. Zero-norm vectors are
// treated as maximally distant from everything.
func cosineDistance(a, b []float64) float64 {
	if len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	denom := math.Sqrt(na) * math.Sqrt(nb)
	if denom == 0 {
		return 1
	}
	return 1 - dot/denom
}
