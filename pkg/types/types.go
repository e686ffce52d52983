// Package types defines the core data structures shared across the
// PKVault pipeline: parsed documents, their chunks, and the transient
// clustering results derived from stored embeddings.
package types

import "time"

// SourceType identifies the format a document was extracted from.
type SourceType string

const (
	SourceMarkdown     SourceType = "markdown"
	SourceText         SourceType = "text"
	SourceJSON         SourceType = "json"
	SourceHTML         SourceType = "html"
	SourcePDF          SourceType = "pdf"
	SourceDOCX         SourceType = "docx"
	SourceConversation SourceType = "conversation"
)

// Chunk is a bounded sub-segment of a document's text, the unit of
// retrieval. A chunk is owned exclusively by its parent document and is
// never shared between documents.
type Chunk struct {
	// Content is the chunk text, including any overlap prefix carried
	// over from the previous chunk.
	Content string

	// Index is the ordinal position of the chunk within its parent
	// document, starting at 0.
	Index int

	// Metadata carries per-chunk context (source path, parent title).
	Metadata map[string]any
}

// ProcessedDocument is a fully processed document ready for the vault
// and the embedding pipeline. It is created by the processor and not
// mutated afterwards, with one exception: Entities is populated by the
// vault writer after entity extraction.
type ProcessedDocument struct {
	Title      string
	Content    string
	Chunks     []Chunk
	SourcePath string
	SourceType SourceType

	// ContentHash is the hex SHA-256 of Content. It is a pure function
	// of the content: two documents with identical content have the
	// same hash regardless of where they came from.
	ContentHash string

	Metadata   map[string]any
	EntityType string

	// Date is an ISO date (YYYY-MM-DD) used in the vault front-matter.
	Date string

	Tags     []string
	Entities []string
}

// NewProcessedDocument returns a document with Date defaulted to
// today's UTC date.
func NewProcessedDocument() *ProcessedDocument {
	return &ProcessedDocument{
		Date:     time.Now().UTC().Format("2006-01-02"),
		Metadata: map[string]any{},
	}
}

// ClusterResult is one density-based cluster of chunk embeddings.
// Results are recomputed in full on every clustering run and never
// persisted: cluster IDs are ephemeral and must not be used as stable
// keys across runs.
type ClusterResult struct {
	// ClusterID is a non-negative identifier. Noise points are dropped
	// before results are built, so no "-1" cluster ever appears here.
	ClusterID int

	// DocumentIDs are the chunk storage keys of the cluster members.
	DocumentIDs []string

	// Centroid is the element-wise mean of the member embeddings.
	Centroid []float64

	// Label is filled in by enrichment, empty otherwise.
	Label string
}

// Relationship is a scored pairing of two chunks that landed in the
// same cluster. Score is cosine similarity in [-1, 1]. Derived data,
// recomputed each run.
type Relationship struct {
	DocA      string
	DocB      string
	Score     float64
	ClusterID int
}
