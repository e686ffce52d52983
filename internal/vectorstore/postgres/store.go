// Package postgres implements the warehouse-backed vector store. Each
// chunk is one row; similarity search is brute-force cosine distance
// over the whole table, which is perfectly serviceable below roughly
// 10K rows and needs no vector index.
//
// Every query is parameterized: vectors travel as pgvector parameters
// and ID lists as array parameters, never as interpolated SQL text.
package postgres

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"regexp"
	"sort"

	"github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

// identRe constrains the configured table name to a plain SQL
// identifier, since DDL cannot take the name as a parameter.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Store is the Postgres-backed vector store.
type Store struct {
	db    *sql.DB
	table string

	// pgvectorAvailable is true when the vector extension is installed;
	// queries then rank with the cosine-distance operator. Without it
	// the BYTEA column still holds every embedding and ranking happens
	// in-process.
	pgvectorAvailable bool
}

var _ vectorstore.Store = (*Store)(nil)

// Open connects to Postgres, verifies the connection, and ensures the
// chunk table exists.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", vectorstore.ErrInvalidInput)
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", vectorstore.ErrInvalidInput, table)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s := &Store{db: db, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema creates the chunk table, attempting the pgvector
// extension first. A refused extension (no superuser, not installed)
// downgrades to BYTEA-only storage rather than failing startup.
func (s *Store) ensureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		log.Printf("postgres: pgvector extension unavailable, falling back to in-process ranking: %v", err)
		s.pgvectorAvailable = false
	} else {
		s.pgvectorAvailable = true
	}

	vecColumn := ""
	if s.pgvectorAvailable {
		vecColumn = "embedding_vec vector,"
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection TEXT NOT NULL,
			chunk_id   TEXT NOT NULL,
			content    TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL DEFAULT '',
			source     TEXT NOT NULL DEFAULT '',
			metadata   TEXT NOT NULL DEFAULT '{}',
			embedding  BYTEA NOT NULL,
			%s
			dimension  INTEGER NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, chunk_id)
		)`, s.table, vecColumn)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("postgres: create table: %w", err)
	}
	return nil
}

// EnsureCollection is a no-op beyond validation: collections are rows'
// collection values, created implicitly on first insert.
func (s *Store) EnsureCollection(ctx context.Context, collection string) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name is required", vectorstore.ErrInvalidInput)
	}
	return nil
}

// AddDocuments upserts by deleting any existing rows with the same IDs
// and inserting fresh ones, all inside a single transaction.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	// No native upsert here: remove any stale versions first.
	del := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND chunk_id = ANY($2)`, s.table)
	if _, err := tx.ExecContext(ctx, del, collection, pq.Array(ids)); err != nil {
		return fmt.Errorf("postgres: delete stale rows: %w", err)
	}

	var insert string
	if s.pgvectorAvailable {
		insert = fmt.Sprintf(`
			INSERT INTO %s (collection, chunk_id, content, title, source, metadata, embedding, embedding_vec, dimension)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, s.table)
	} else {
		insert = fmt.Sprintf(`
			INSERT INTO %s (collection, chunk_id, content, title, source, metadata, embedding, dimension)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("postgres: prepare insert: %w", err)
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
			return fmt.Errorf("postgres: marshal metadata for %s: %w", id, err)
		}
		title, _ := meta["title"].(string)
		source, _ := meta["source"].(string)
		blob := serializeEmbedding(embeddings[i])

		var execErr error
		if s.pgvectorAvailable {
			vec := pgvector.NewVector(toFloat32(embeddings[i]))
			_, execErr = stmt.ExecContext(ctx, collection, id, documents[i], title, source, string(metaJSON), blob, vec, len(embeddings[i]))
		} else {
			_, execErr = stmt.ExecContext(ctx, collection, id, documents[i], title, source, string(metaJSON), blob, len(embeddings[i]))
		}
		if execErr != nil {
			return fmt.Errorf("postgres: insert %s: %w", id, execErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Query returns the n nearest rows by cosine distance. With pgvector
// the ranking runs in SQL via the parameterized <=> operator; without
// it the table is loaded and ranked in-process. Either way it is a
// brute-force scan.
func (s *Store) Query(ctx context.Context, collection string, embedding []float64, n int) (*vectorstore.QueryResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", vectorstore.ErrInvalidInput)
	}

	if !s.pgvectorAvailable {
		return s.bruteForceQuery(ctx, collection, embedding, n)
	}

	query := fmt.Sprintf(`
		SELECT chunk_id, content, metadata, embedding_vec <=> $1 AS distance
		FROM %s
		WHERE collection = $2 AND embedding_vec IS NOT NULL
		ORDER BY distance ASC
		LIMIT $3`, s.table)

	vec := pgvector.NewVector(toFloat32(embedding))
	rows, err := s.db.QueryContext(ctx, query, vec, collection, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	res := emptyQueryResult()
	for rows.Next() {
		var (
			id, content, metaJSON string
			distance              float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		res.IDs[0] = append(res.IDs[0], id)
		res.Documents[0] = append(res.Documents[0], content)
		res.Metadatas[0] = append(res.Metadatas[0], unmarshalMetadata(metaJSON))
		res.Distances[0] = append(res.Distances[0], distance)
	}
	return res, rows.Err()
}

// bruteForceQuery ranks the collection in-process from the BYTEA
// column.
func (s *Store) bruteForceQuery(ctx context.Context, collection string, embedding []float64, n int) (*vectorstore.QueryResult, error) {
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

	res := emptyQueryResult()
	for _, r := range ranked {
		res.IDs[0] = append(res.IDs[0], data.IDs[r.idx])
		res.Documents[0] = append(res.Documents[0], data.Documents[r.idx])
		res.Metadatas[0] = append(res.Metadatas[0], data.Metadatas[r.idx])
		res.Distances[0] = append(res.Distances[0], r.distance)
	}
	return res, nil
}

// GetAll loads the full collection including embeddings.
func (s *Store) GetAll(ctx context.Context, collection string) (*vectorstore.CollectionData, error) {
	query := fmt.Sprintf(`SELECT chunk_id, content, metadata, embedding, dimension FROM %s WHERE collection = $1 ORDER BY chunk_id`, s.table)
	rows, err := s.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("postgres: get all: %w", err)
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
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		embedding, err := deserializeEmbedding(blob, dimension)
		if err != nil {
			return nil, fmt.Errorf("postgres: embedding for %s: %w", id, err)
		}
		data.IDs = append(data.IDs, id)
		data.Documents = append(data.Documents, content)
		data.Metadatas = append(data.Metadatas, unmarshalMetadata(metaJSON))
		data.Embeddings = append(data.Embeddings, embedding)
	}
	return data, rows.Err()
}

// Count returns the number of rows in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE collection = $1`, s.table)
	var count int
	if err := s.db.QueryRowContext(ctx, query, collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return count, nil
}

// HasID is a point lookup for the given chunk ID.
func (s *Store) HasID(ctx context.Context, collection string, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE collection = $1 AND chunk_id = $2 LIMIT 1`, s.table)
	var one int
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: has id: %w", err)
	}
	return true, nil
}

// GetByIDs fetches specific rows; missing IDs are absent from the
// result.
func (s *Store) GetByIDs(ctx context.Context, collection string, ids []string, include vectorstore.Include) (*vectorstore.CollectionData, error) {
	data := &vectorstore.CollectionData{}
	if len(ids) == 0 {
		return data, nil
	}

	query := fmt.Sprintf(`SELECT chunk_id, content, metadata, embedding, dimension FROM %s WHERE collection = $1 AND chunk_id = ANY($2)`, s.table)
	rows, err := s.db.QueryContext(ctx, query, collection, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("postgres: get by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, content, metaJSON string
			blob                  []byte
			dimension             int
		)
		if err := rows.Scan(&id, &content, &metaJSON, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
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
				return nil, fmt.Errorf("postgres: embedding for %s: %w", id, err)
			}
			data.Embeddings = append(data.Embeddings, embedding)
		}
	}
	return data, rows.Err()
}

// DeleteByIDs removes rows by ID; missing IDs are ignored.
func (s *Store) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND chunk_id = ANY($2)`, s.table)
	if _, err := s.db.ExecContext(ctx, query, collection, pq.Array(ids)); err != nil {
		return fmt.Errorf("postgres: delete by ids: %w", err)
	}
	return nil
}

func emptyQueryResult() *vectorstore.QueryResult {
	return &vectorstore.QueryResult{
		IDs:       [][]string{{}},
		Documents: [][]string{{}},
		Metadatas: [][]map[string]any{{}},
		Distances: [][]float64{{}},
	}
}

func unmarshalMetadata(metaJSON string) map[string]any {
	meta := map[string]any{}
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &meta)
	}
	return meta
}

// toFloat32 narrows an embedding for the pgvector column, which stores
// float32 components.
func toFloat32(embedding []float64) []float32 {
	out := make([]float32, len(embedding))
	for i, v := range embedding {
		out[i] = float32(v)
	}
	return out
}

// serializeEmbedding converts a float64 slice to little-endian bytes.
func serializeEmbedding(embedding []float64) []byte {
	buf := make([]byte, len(embedding)*8)
	for i, v := range embedding {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

// deserializeEmbedding converts little-endian bytes back to float64s.
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

// cosineDistance is 1 - cosine similarity, with zero-norm vectors
// treated as maximally distant.
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
