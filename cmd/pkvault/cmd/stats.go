package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pkvault/pkvault/internal/vectorstore"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show vault statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	total, folders, err := vaultCounts(cfg.VaultPath)
	if err != nil {
		return err
	}

	// Store stats are best effort; a missing index is still a vault.
	embedded := 0
	if store, err := openStore(context.Background()); err == nil {
		if n, err := store.Count(context.Background(), vectorstore.DefaultCollection); err == nil {
			embedded = n
		}
		_ = store.Close()
	}

	fmt.Println("Vault Statistics")
	fmt.Printf("  Total documents: %d\n", total)
	fmt.Printf("  Embedded chunks: %d\n", embedded)
	if len(folders) > 0 {
		fmt.Println("\n  Folders:")
		names := make([]string, 0, len(folders))
		for name := range folders {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("    %s: %d\n", name, folders[name])
		}
	}
	return nil
}

// vaultCounts walks the vault and counts markdown documents per
// top-level folder. Dotfiles (the dedup ledger among them) are skipped.
func vaultCounts(vaultPath string) (int, map[string]int, error) {
	total := 0
	folders := map[string]int{}

	err := filepath.WalkDir(vaultPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		total++
		rel, err := filepath.Rel(vaultPath, path)
		if err != nil {
			return nil
		}
		folder := "root"
		if parts := strings.Split(rel, string(filepath.Separator)); len(parts) > 1 {
			folder = parts[0]
		}
		folders[folder]++
		return nil
	})
	if err != nil {
		// A missing vault is zero documents, not a failure.
		return 0, map[string]int{}, nil
	}
	return total, folders, nil
}
