package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/cluster"
	"github.com/pkvault/pkvault/internal/enrich"
	"github.com/pkvault/pkvault/internal/llm"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Label clusters with the LLM and extract entities",
	Long: `Run clustering, then ask the configured LLM to label each cluster,
summarize the relationships inside it, and extract named entities.
Discovered entities get pages in the vault's entities folder.`,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := llm.NewTextGenerator(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := newWriter()
	if err != nil {
		return err
	}

	fmt.Println("Running clustering...")
	clusters, err := cluster.NewEngine(store, cfg).Run(ctx)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No clusters to enrich.")
		return nil
	}

	fmt.Printf("Enriching %d cluster(s)...\n", len(clusters))
	results, err := enrich.New(gen, store, writer, cfg).EnrichClusters(ctx, clusters)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != "" {
			fmt.Printf("  Cluster %d: %s\n", r.ClusterID, r.Err)
			continue
		}
		fmt.Printf("  Cluster %d: %s\n", r.ClusterID, r.Label)
		for _, e := range r.Entities {
			fmt.Printf("    -> %s (%s)\n", e.Name, e.Type)
		}
	}
	return nil
}
