package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/cluster"
	"github.com/pkvault/pkvault/internal/enrich"
	"github.com/pkvault/pkvault/internal/llm"
	"github.com/pkvault/pkvault/internal/pipeline"
	"github.com/pkvault/pkvault/internal/watch"
)

var (
	watchEnrich   bool
	watchDebounce float64
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the ingest directory and run the pipeline on changes",
	Long: `Watch the ingest directory recursively. File events are debounced: a
burst of drops becomes one batch, processed only after the directory
has been quiet for the full debounce window. Each batch runs the whole
pipeline: parse, write to vault, embed, cluster, and (unless disabled)
enrich.

Examples:
  pkvault watch
  pkvault watch --enrich=false --debounce 2`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchEnrich, "enrich", true, "run enrichment after each batch")
	watchCmd.Flags().Float64Var(&watchDebounce, "debounce", 0, "seconds to wait after the last change (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	writer, err := newWriter()
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(store)
	if err != nil {
		return err
	}
	engine := cluster.NewEngine(store, cfg)

	var enricher *enrich.Enricher
	if watchEnrich {
		gen, err := llm.NewTextGenerator(cfg)
		if err != nil {
			fmt.Printf("Enrichment disabled: %v\n", err)
		} else {
			enricher = enrich.New(gen, store, writer, cfg)
		}
	}

	p := pipeline.New(cfg, writer, embedder, engine, enricher)

	debounce := time.Duration(cfg.Watch.DebounceSeconds * float64(time.Second))
	if cmd.Flags().Changed("debounce") {
		debounce = time.Duration(watchDebounce * float64(time.Second))
	}

	w := watch.New(cfg.IngestPath, debounce, func(paths []string) {
		fmt.Printf("\nProcessing %d file(s)...\n", len(paths))
		summary, err := p.RunFiles(ctx, paths)
		if err != nil {
			fmt.Printf("Batch failed: %v\n", err)
			return
		}
		fmt.Printf("Batch done: wrote %d, embedded %d, %d cluster(s)\n",
			summary.Written, summary.Embedded, summary.Clusters)
	})
	if err := w.Start(); err != nil {
		return err
	}

	fmt.Printf("Watching %s (debounce %s). Press Ctrl-C to stop.\n", cfg.IngestPath, debounce)
	<-ctx.Done()
	fmt.Println("\nStopping watcher...")
	w.Stop()
	return nil
}
