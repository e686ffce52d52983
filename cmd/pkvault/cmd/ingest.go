package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/processor"
	"github.com/pkvault/pkvault/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Process files into the vault",
	Long: `Process files from the ingest directory, or from a specific file or
directory, into the markdown vault. Content already in the vault is
skipped by content hash.

Examples:
  pkvault ingest
  pkvault ingest ~/Downloads/meeting-notes.pdf
  pkvault ingest ~/exports/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	var (
		docs     []*types.ProcessedDocument
		failures int
	)

	if len(args) > 0 {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("path not found: %s", path)
		}
		if info.IsDir() {
			docs, failures, err = processor.ProcessDirectory(path, cfg)
		} else {
			var doc *types.ProcessedDocument
			doc, err = processor.ProcessFile(path, cfg)
			if doc != nil {
				docs = append(docs, doc)
			}
		}
		if err != nil {
			return err
		}
	} else {
		if _, err := os.Stat(cfg.IngestPath); err != nil {
			fmt.Printf("Ingest directory not found: %s\n", cfg.IngestPath)
			return nil
		}
		var err error
		docs, failures, err = processor.ProcessDirectory(cfg.IngestPath, cfg)
		if err != nil {
			return err
		}
	}

	if len(docs) == 0 {
		fmt.Println("No files to process.")
		return nil
	}

	writer, err := newWriter()
	if err != nil {
		return err
	}

	fmt.Printf("Processing %d document(s)...\n", len(docs))
	paths, err := writer.WriteMany(docs)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d new document(s) to vault\n", len(paths))
	for _, p := range paths {
		fmt.Printf("  -> %s\n", p)
	}
	if skipped := len(docs) - len(paths); skipped > 0 {
		fmt.Printf("  (%d duplicate(s) skipped)\n", skipped)
	}
	if failures > 0 {
		fmt.Printf("  (%d file(s) failed to parse)\n", failures)
	}
	return nil
}
