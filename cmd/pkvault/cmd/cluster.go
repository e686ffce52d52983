package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/cluster"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Cluster embedded documents and score relationships",
	Long: `Run density-based clustering over all stored chunk embeddings, then
score pairwise relationships within each cluster by cosine
similarity. Results are recomputed from scratch each run.`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)
}

func runCluster(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := cluster.NewEngine(store, cfg)

	fmt.Println("Running clustering...")
	clusters, err := engine.Run(ctx)
	if err != nil {
		return err
	}
	if len(clusters) == 0 {
		fmt.Println("No clusters found. Need more embedded documents.")
		return nil
	}

	fmt.Printf("Found %d cluster(s)\n", len(clusters))
	for _, c := range clusters {
		fmt.Printf("  Cluster %d: %d documents\n", c.ClusterID, len(c.DocumentIDs))
	}

	relationships, err := engine.ExtractRelationships(ctx, clusters)
	if err != nil {
		return err
	}
	fmt.Printf("\nFound %d relationship(s)\n", len(relationships))
	for i, r := range relationships {
		if i == 10 {
			break
		}
		fmt.Printf("  %s <-> %s (score: %.3f)\n", r.DocA, r.DocB, r.Score)
	}
	return nil
}
