package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/processor"
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed all unembedded vault documents",
	Long: `Load every document in the vault, chunk it, and store embeddings for
chunks not yet in the vector index. Already-embedded chunks are
skipped, so re-running is cheap.`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := os.Stat(cfg.VaultPath); err != nil {
		fmt.Printf("Vault not found: %s. Run 'pkvault ingest' first.\n", cfg.VaultPath)
		return nil
	}

	fmt.Println("Loading documents from vault...")
	docs, _, err := processor.ProcessDirectory(cfg.VaultPath, cfg)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents to embed.")
		return nil
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := newEmbedder(store)
	if err != nil {
		return err
	}

	chunks := 0
	for _, d := range docs {
		chunks += len(d.Chunks)
	}
	fmt.Printf("Embedding %d chunks from %d documents...\n", chunks, len(docs))

	count, err := embedder.EmbedDocuments(ctx, docs)
	if err != nil {
		return err
	}
	fmt.Printf("Embedded %d new chunk(s)\n", count)
	return nil
}
