package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkvault/pkvault/pkg/types"
)

// TextParser handles plain text files (.txt, .text, .log, .csv).
type TextParser struct{}

// Parse reads the file verbatim. The first line doubles as the title
// when it stays under 120 characters; otherwise the filename stem is
// used.
func (p *TextParser) Parse(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: read %s: %w", path, err)
	}

	text := string(data)
	title := stem(path)

	firstLine, _, _ := strings.Cut(text, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine != "" && len(firstLine) < 120 {
		title = firstLine
	}

	return &Result{
		Content:    text,
		Title:      title,
		Metadata:   map[string]any{},
		SourceType: types.SourceText,
	}, nil
}
