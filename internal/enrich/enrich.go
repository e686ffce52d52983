// Package enrich asks the LLM to label clusters, extract shared
// entities, and materialize entity pages in the vault.
package enrich

import (
	"context"
	"fmt"
	"log"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/llm"
	"github.com/pkvault/pkvault/internal/vault"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/pkg/types"
)

// Result is the enrichment outcome for one cluster. A failed LLM call
// fills Err and leaves the rest empty; one bad cluster never aborts
// the run.
type Result struct {
	ClusterID           int
	Label               string
	Entities            []llm.Entity
	RelationshipSummary string
	Tags                []string
	DocumentIDs         []string
	Err                 string
}

// Enricher drives cluster analysis calls and entity page creation.
type Enricher struct {
	gen    llm.TextGenerator
	store  vectorstore.Store
	writer *vault.Writer
	cfg    *config.Config
}

// New returns an Enricher.
func New(gen llm.TextGenerator, store vectorstore.Store, writer *vault.Writer, cfg *config.Config) *Enricher {
	return &Enricher{gen: gen, store: store, writer: writer, cfg: cfg}
}

// EnrichClusters analyzes up to max_clusters clusters, feeding each
// prompt at most max_docs_per_cluster member documents.
func (e *Enricher) EnrichClusters(ctx context.Context, clusters []types.ClusterResult) ([]Result, error) {
	maxClusters := e.cfg.Enrichment.MaxClusters
	if maxClusters > 0 && len(clusters) > maxClusters {
		clusters = clusters[:maxClusters]
	}
	maxDocs := e.cfg.Enrichment.MaxDocsPerCluster

	var results []Result
	for _, cluster := range clusters {
		docIDs := cluster.DocumentIDs
		if maxDocs > 0 && len(docIDs) > maxDocs {
			docIDs = docIDs[:maxDocs]
		}

		data, err := e.store.GetByIDs(ctx, vectorstore.DefaultCollection, docIDs,
			vectorstore.Include{Documents: true, Metadatas: true})
		if err != nil {
			return results, fmt.Errorf("enrich: load cluster %d: %w", cluster.ClusterID, err)
		}
		if len(data.Documents) == 0 {
			continue
		}

		docs := make([]llm.PromptDocument, len(data.Documents))
		for i := range data.Documents {
			title := ""
			if i < len(data.Metadatas) {
				title, _ = data.Metadatas[i]["title"].(string)
			}
			docs[i] = llm.PromptDocument{Title: title, Content: data.Documents[i]}
		}

		reply, err := e.gen.Complete(ctx, llm.ClusterAnalysisSystem, llm.BuildClusterPrompt(docs))
		if err != nil {
			log.Printf("enrich: cluster %d failed: %v", cluster.ClusterID, err)
			results = append(results, Result{ClusterID: cluster.ClusterID, Err: err.Error()})
			continue
		}

		parsed := llm.ParseEnrichment(reply)
		result := Result{
			ClusterID:           cluster.ClusterID,
			Label:               parsed.Label,
			Entities:            parsed.Entities,
			RelationshipSummary: parsed.RelationshipSummary,
			Tags:                parsed.Tags,
			DocumentIDs:         cluster.DocumentIDs,
		}
		results = append(results, result)

		e.createEntityPages(parsed.Entities)
	}
	return results, nil
}

// createEntityPages materializes pages for discovered entities.
// Failures are logged, not propagated; pages are a side effect.
func (e *Enricher) createEntityPages(entities []llm.Entity) {
	if e.writer == nil {
		return
	}
	for _, entity := range entities {
		if entity.Name == "" {
			continue
		}
		if _, err := e.writer.WriteEntityPage(vault.EntityPage{
			Name: entity.Name,
			Type: entity.Type,
		}); err != nil {
			log.Printf("enrich: entity page for %q: %v", entity.Name, err)
		}
	}
}
