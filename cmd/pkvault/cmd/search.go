package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var searchN int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over the knowledge vault",
	Long: `Embed the query and list the closest stored chunks, best match first.
Score is 1 minus cosine distance, so 1.0 is a perfect match.

Examples:
  pkvault search "kubernetes upgrade plan"
  pkvault search "standup notes" -n 10`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchN, "n", "n", 5, "number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	fmt.Printf("Searching for: %q\n\n", query)

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder, err := newEmbedder(store)
	if err != nil {
		return err
	}

	results, err := embedder.Search(ctx, query, searchN)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results found. Have you run 'pkvault embed'?")
		return nil
	}

	for i, r := range results {
		title := "Unknown"
		if t, ok := r.Metadata["title"].(string); ok && t != "" {
			title = t
		}
		fmt.Printf("%2d. %s (score: %.3f)\n", i+1, title, 1-r.Distance)
		fmt.Printf("    %s\n", preview(r.Document, 80))
	}
	return nil
}

// preview flattens a chunk to a single display line of at most n runes.
func preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "..."
}
