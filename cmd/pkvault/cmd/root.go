// Package cmd implements the pkvault command tree.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/config"
	"github.com/pkvault/pkvault/internal/embedding"
	"github.com/pkvault/pkvault/internal/llm"
	"github.com/pkvault/pkvault/internal/vault"
	"github.com/pkvault/pkvault/internal/vectorstore"
	"github.com/pkvault/pkvault/internal/vectorstore/factory"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pkvault",
	Short: "Personal knowledge vault: ingest, organize, and query your knowledge",
	Long: `pkvault turns dropped files into an organized markdown vault.

Documents are parsed, deduplicated, written to the vault with
front-matter and wikilinks, embedded into a local vector index, and
clustered so related notes surface together.

Typical flow:
  pkvault ingest    Process files from the ingest directory
  pkvault embed     Embed vault documents into the vector index
  pkvault search    Semantic search over embedded chunks
  pkvault ask       Retrieval-augmented question answering
  pkvault watch     Watch the ingest directory and run the pipeline`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml or ~/.pkvault/config.yaml)")
}

// openStore opens the configured vector store backend.
func openStore(ctx context.Context) (vectorstore.Store, error) {
	return factory.Open(ctx, cfg)
}

// newEmbedder wires the embedding generator to a store.
func newEmbedder(store vectorstore.Store) (*embedding.Embedder, error) {
	gen, err := llm.NewEmbeddingGenerator(cfg)
	if err != nil {
		return nil, err
	}
	return embedding.NewEmbedder(gen, store, cfg), nil
}

func newWriter() (*vault.Writer, error) {
	return vault.NewWriter(cfg.VaultPath, nil)
}
