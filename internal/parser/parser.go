// Package parser extracts plain text, a title and metadata from raw
// files in the formats PKVault understands: markdown, plain text, JSON
// chat exports, HTML, PDF and DOCX. Parsers are selected by file
// extension; an unsupported extension is not an error, it simply has no
// parser, which lets the processor skip the file.
package parser

import (
	"path/filepath"
	"strings"

	"github.com/pkvault/pkvault/pkg/types"
)

// Result is the outcome of parsing one file.
type Result struct {
	// Content is the full extracted plain text.
	Content string

	// Title is the best available document title.
	Title string

	// Metadata holds format-specific extras (front-matter fields,
	// conversation platform, page counts).
	Metadata map[string]any

	// SourceType records which format the content came from.
	SourceType types.SourceType
}

// Parser extracts a Result from a file on disk.
type Parser interface {
	Parse(path string) (*Result, error)
}

var registry = map[string]Parser{
	".md":       &MarkdownParser{},
	".markdown": &MarkdownParser{},
	".txt":      &TextParser{},
	".text":     &TextParser{},
	".log":      &TextParser{},
	".csv":      &TextParser{},
	".json":     &JSONParser{},
	".html":     &HTMLParser{},
	".htm":      &HTMLParser{},
	".pdf":      &PDFParser{},
	".docx":     &DOCXParser{},
}

// ForExtension returns the parser registered for ext (case-insensitive,
// leading dot included). The second return is false when the extension
// is unsupported.
func ForExtension(ext string) (Parser, bool) {
	p, ok := registry[strings.ToLower(ext)]
	return p, ok
}

// ForPath is a convenience wrapper selecting by the path's extension.
func ForPath(path string) (Parser, bool) {
	return ForExtension(filepath.Ext(path))
}

// SupportedExtensions lists every registered extension. Used by the
// watcher to filter file events.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	return exts
}

// stem returns the file name without its extension, the universal
// fallback title.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
