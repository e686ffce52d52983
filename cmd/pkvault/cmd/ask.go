package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/llm"
	"github.com/pkvault/pkvault/internal/qa"
)

var askN int

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question and get an AI-synthesized answer from your vault",
	Long: `Retrieve the most relevant chunks for the question and have the
configured LLM synthesize an answer from them, citing source
documents.

Examples:
  pkvault ask "what did we decide about the Q3 roadmap?"
  pkvault ask "who is responsible for billing?" -n 20`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().IntVarP(&askN, "n", "n", qa.DefaultChunks, "number of context chunks to retrieve")
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	embedder, err := newEmbedder(store)
	if err != nil {
		return err
	}

	fmt.Println("Searching vault for context...")
	answer, err := qa.New(gen, embedder).Ask(ctx, args[0], askN)
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", answer.Answer)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, title := range answer.Sources {
			fmt.Printf("  - [[%s]]\n", title)
		}
	}
	return nil
}
