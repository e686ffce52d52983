package vault

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ledgerFilename lives at the vault root. It maps content hash to the
// relative path the content was written under.
const ledgerFilename = ".pkvault_hashes.json"

// ledger is the persistent dedup record. Safe for concurrent use.
type ledger struct {
	mu     sync.Mutex
	path   string
	hashes map[string]string
}

// openLedger loads the ledger file, or starts empty when none exists.
func openLedger(vaultPath string) (*ledger, error) {
	l := &ledger{
		path:   filepath.Join(vaultPath, ledgerFilename),
		hashes: map[string]string{},
	}
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("vault: read hash ledger: %w", err)
	}
	if err := json.Unmarshal(raw, &l.hashes); err != nil {
		return nil, fmt.Errorf("vault: parse hash ledger: %w", err)
	}
	return l, nil
}

// has reports whether the content hash was written before.
func (l *ledger) has(hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hashes[hash] != ""
}

// record stores hash -> relPath and flushes to disk immediately, so
// an interrupted run never forgets what it already wrote.
func (l *ledger) record(hash, relPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.hashes[hash] = relPath
	raw, err := json.MarshalIndent(l.hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("vault: marshal hash ledger: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("vault: create vault dir: %w", err)
	}
	if err := os.WriteFile(l.path, raw, 0o644); err != nil {
		return fmt.Errorf("vault: write hash ledger: %w", err)
	}
	return nil
}

// len returns the number of recorded hashes.
func (l *ledger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hashes)
}
