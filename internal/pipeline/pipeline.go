// Package pipeline runs the full ingestion flow: parse and chunk
// sources, write them to the vault, embed the vault contents, cluster,
// and optionally enrich. Stages after the vault write are isolated; a
// dead embedding endpoint still leaves the documents safely written.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/pkvault/pkvault/internal/cluster"
	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/embedding"
	"github.com/pkvault/pkvault/internal/enrich"
	"github.com/pkvault/pkvault/internal/processor"
	"github.com/pkvault/pkvault/internal/vault"
	"github.com/pkvault/pkvault/pkg/types"
)

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	cfg      *config.Config
	writer   *vault.Writer
	embedder *embedding.Embedder
	engine   *cluster.Engine
	enricher *enrich.Enricher
}

// New assembles a pipeline. enricher may be nil; the enrichment stage
// is then skipped.
func New(cfg *config.Config, writer *vault.Writer, embedder *embedding.Embedder, engine *cluster.Engine, enricher *enrich.Enricher) *Pipeline {
	return &Pipeline{cfg: cfg, writer: writer, embedder: embedder, engine: engine, enricher: enricher}
}

// Summary reports what one pipeline run did.
type Summary struct {
	RunID     string
	Processed int
	Failures  int
	Written   int
	Embedded  int
	Clusters  int
	Enriched  int
}

// RunDirectory ingests every supported file under dir and runs the
// remaining stages.
func (p *Pipeline) RunDirectory(ctx context.Context, dir string) (*Summary, error) {
	docs, failures, err := processor.ProcessDirectory(dir, p.cfg)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, docs, failures)
}

// RunFiles ingests the given files. Used by watch mode, where the
// batch is a coalesced set of changed paths. Per-file failures are
// counted, not fatal.
func (p *Pipeline) RunFiles(ctx context.Context, paths []string) (*Summary, error) {
	var docs []*types.ProcessedDocument
	failures := 0
	for _, path := range paths {
		doc, err := processor.ProcessFile(path, p.cfg)
		if err != nil {
			log.Printf("pipeline: process %s: %v", path, err)
			failures++
			continue
		}
		if doc != nil {
			docs = append(docs, doc)
		}
	}
	return p.run(ctx, docs, failures)
}

func (p *Pipeline) run(ctx context.Context, docs []*types.ProcessedDocument, failures int) (*Summary, error) {
	summary := &Summary{
		RunID:     uuid.NewString(),
		Processed: len(docs),
		Failures:  failures,
	}
	log.Printf("pipeline[%s]: %d documents, %d failures", summary.RunID, len(docs), failures)
	if len(docs) == 0 {
		return summary, nil
	}

	// Vault write is the authoritative stage; its failure aborts.
	written, err := p.writer.WriteMany(docs)
	if err != nil {
		return summary, fmt.Errorf("pipeline: vault write: %w", err)
	}
	summary.Written = len(written)
	log.Printf("pipeline[%s]: wrote %d new documents", summary.RunID, len(written))

	// Embed the vault tree rather than the incoming batch: previously
	// written but never embedded documents get picked up too, and
	// chunk IDs make re-embedding a no-op.
	vaultDocs, _, err := processor.ProcessDirectory(p.cfg.VaultPath, p.cfg)
	if err != nil {
		log.Printf("pipeline[%s]: load vault: %v", summary.RunID, err)
		return summary, nil
	}
	embedded, err := p.embedder.EmbedDocuments(ctx, vaultDocs)
	if err != nil {
		log.Printf("pipeline[%s]: embedding failed: %v", summary.RunID, err)
		return summary, nil
	}
	summary.Embedded = embedded

	clusters, err := p.engine.Run(ctx)
	if err != nil {
		log.Printf("pipeline[%s]: clustering failed: %v", summary.RunID, err)
		return summary, nil
	}
	summary.Clusters = len(clusters)

	if p.enricher != nil && len(clusters) > 0 {
		results, err := p.enricher.EnrichClusters(ctx, clusters)
		if err != nil {
			log.Printf("pipeline[%s]: enrichment failed: %v", summary.RunID, err)
			return summary, nil
		}
		summary.Enriched = len(results)
	}

	log.Printf("pipeline[%s]: done: wrote %d, embedded %d, %d clusters",
		summary.RunID, summary.Written, summary.Embedded, summary.Clusters)
	return summary, nil
}
