package vault

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkvault/pkvault/pkg/types"
)

// Writer persists processed documents into the vault tree.
type Writer struct {
	vaultPath string
	ontology  *Ontology
	ledger    *ledger
}

// NewWriter opens (or starts) the vault at vaultPath.
func NewWriter(vaultPath string, ontology *Ontology) (*Writer, error) {
	if ontology == nil {
		ontology = DefaultOntology()
	}
	led, err := openLedger(vaultPath)
	if err != nil {
		return nil, err
	}
	return &Writer{vaultPath: vaultPath, ontology: ontology, ledger: led}, nil
}

// Write renders doc into the vault and returns the written path.
// Content already in the ledger is skipped with ("", nil): dedup is by
// content hash, so the same text under a new filename still counts as
// a duplicate.
func (w *Writer) Write(doc *types.ProcessedDocument) (string, error) {
	if w.ledger.has(doc.ContentHash) {
		return "", nil
	}

	dir := filepath.Join(w.vaultPath, w.ontology.Folder(doc.EntityType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("vault: create %s: %w", dir, err)
	}

	base := sanitizeFilename(doc.Title)
	path := filepath.Join(dir, base+".md")
	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.md", base, counter))
	}

	entities := w.ontology.ExtractEntities(doc.Content)
	doc.Entities = entities

	fm := documentFrontmatter{
		Title:       doc.Title,
		Date:        doc.Date,
		Source:      doc.SourcePath,
		Type:        doc.EntityType,
		SourceType:  string(doc.SourceType),
		ContentHash: doc.ContentHash,
		Tags:        doc.Tags,
		Entities:    entities,
	}
	content, err := renderDocument(doc.Title, doc.Content, fm, entities)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("vault: write %s: %w", path, err)
	}

	rel, err := filepath.Rel(w.vaultPath, path)
	if err != nil {
		rel = path
	}
	if err := w.ledger.record(doc.ContentHash, rel); err != nil {
		return "", err
	}
	return path, nil
}

// WriteMany writes each document, returning the paths actually
// written. Duplicates are silently skipped.
func (w *Writer) WriteMany(docs []*types.ProcessedDocument) ([]string, error) {
	var paths []string
	for _, doc := range docs {
		path, err := w.Write(doc)
		if err != nil {
			return paths, err
		}
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// WriteEntityPage materializes a page for an enrichment-discovered
// entity. Existing pages are never overwritten; the user may have
// edited them.
func (w *Writer) WriteEntityPage(page EntityPage) (string, error) {
	name := strings.TrimSpace(page.Name)
	if name == "" {
		return "", nil
	}
	if !w.ontology.ValidType(page.Type) {
		page.Type = "Topic"
	}

	dir := filepath.Join(w.vaultPath, w.ontology.Folder(page.Type))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("vault: create %s: %w", dir, err)
	}

	base := sanitizeFilename(name)
	path := filepath.Join(dir, base+".md")
	if _, err := os.Stat(path); err == nil {
		return "", nil
	}

	content, err := renderEntityPage(page, w.ontology.Icon(page.Type))
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("vault: write %s: %w", path, err)
	}
	log.Printf("vault: created entity page %s", path)
	return path, nil
}

// KnownHashes returns how many content hashes the ledger holds.
func (w *Writer) KnownHashes() int {
	return w.ledger.len()
}

var unsafeFilenameRe = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeFilename strips characters that are unsafe on common
// filesystems and caps the length. Empty results become "untitled".
func sanitizeFilename(name string) string {
	name = unsafeFilenameRe.ReplaceAllString(name, "")
	name = strings.Trim(name, ". ")
	if name == "" {
		return "untitled"
	}
	runes := []rune(name)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return name
}
