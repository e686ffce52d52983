// Package processor orchestrates parsing and chunking into canonical
// document records: it selects a parser by extension, computes the
// content hash used for deduplication, infers the ontology entity type
// and applies the chunker.
package processor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkvault/pkvault/internal/chunker"
	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/parser"
	"github.com/pkvault/pkvault/pkg/types"
)

// ComputeHash returns the hex SHA-256 of content. The hash is a pure
// function of the content: identical text hashes identically no matter
// which file it arrived in.
func ComputeHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ProcessFile turns a single file into a ProcessedDocument. A file with
// an unsupported extension returns (nil, nil), not an error, so
// directory walks can skip it silently.
func ProcessFile(path string, cfg *config.Config) (*types.ProcessedDocument, error) {
	p, ok := parser.ForPath(path)
	if !ok {
		return nil, nil
	}

	res, err := p.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("processor: %s: %w", path, err)
	}

	doc := types.NewProcessedDocument()
	doc.Title = res.Title
	doc.Content = res.Content
	doc.SourcePath = path
	doc.SourceType = res.SourceType
	doc.ContentHash = ComputeHash(res.Content)
	doc.Metadata = res.Metadata
	doc.EntityType = inferEntityType(res.SourceType, res.Title)
	doc.Tags = stringSlice(res.Metadata["tags"])

	if date := metadataDate(res.Metadata); date != "" {
		doc.Date = date
	}

	textChunks := chunker.Split(res.Content, chunker.Options{
		MaxTokens:         cfg.Chunking.MaxTokens,
		OverlapTokens:     cfg.Chunking.OverlapTokens,
		RespectBoundaries: cfg.Chunking.RespectBoundaries,
	})
	doc.Chunks = make([]types.Chunk, 0, len(textChunks))
	for i, c := range textChunks {
		doc.Chunks = append(doc.Chunks, types.Chunk{
			Content: c,
			Index:   i,
			Metadata: map[string]any{
				"source": path,
				"title":  res.Title,
			},
		})
	}

	return doc, nil
}

// ProcessDirectory walks root in deterministic (lexical) order and
// processes every supported file. Dotfiles and dot-directories are
// skipped. A parse failure on one file is logged and counted but never
// aborts the batch; the failure count comes back alongside the
// documents. A missing root yields an empty batch.
func ProcessDirectory(root string, cfg *config.Config) ([]*types.ProcessedDocument, int, error) {
	var docs []*types.ProcessedDocument
	failures := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return nil // missing root: nothing to do
			}
			log.Printf("processor: walk %s: %v", path, err)
			failures++
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		doc, perr := ProcessFile(path, cfg)
		if perr != nil {
			log.Printf("processor: %v", perr)
			failures++
			return nil
		}
		if doc != nil {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return docs, failures, fmt.Errorf("processor: walk %s: %w", root, err)
	}

	return docs, failures, nil
}

// inferEntityType maps source format and title onto the ontology.
func inferEntityType(sourceType types.SourceType, title string) string {
	switch sourceType {
	case types.SourceConversation:
		return "Conversation"
	case types.SourcePDF, types.SourceDOCX:
		return "Document"
	}
	if strings.Contains(strings.ToLower(title), "meeting") {
		return "Meeting"
	}
	return "Document"
}

// metadataDate normalizes a front-matter date into YYYY-MM-DD.
func metadataDate(metadata map[string]any) string {
	switch v := metadata["date"].(type) {
	case string:
		return strings.TrimSpace(v)
	case time.Time:
		return v.Format("2006-01-02")
	default:
		return ""
	}
}

// stringSlice coerces a decoded YAML/JSON list into strings, dropping
// anything that isn't one.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
