package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pkvault/pkvault/pkg/types"
)

var (
	frontmatterRe = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)
	h1Re          = regexp.MustCompile(`(?m)^#\s+(.+)$`)
)

// MarkdownParser parses markdown files, extracting a leading
// ---‑delimited YAML front-matter block as metadata.
type MarkdownParser struct{}

// Parse reads a markdown file. Title precedence: front-matter `title`,
// then the first `# Heading`, then the filename stem. A malformed
// front-matter block is ignored rather than failing the file.
func (p *MarkdownParser) Parse(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("markdown: read %s: %w", path, err)
	}

	text := string(data)
	metadata := map[string]any{}
	content := text

	if m := frontmatterRe.FindStringSubmatch(text); m != nil {
		var fm map[string]any
		if err := yaml.Unmarshal([]byte(m[1]), &fm); err == nil {
			for k, v := range fm {
				metadata[k] = v
			}
		}
		content = text[len(m[0]):]
	}

	title, _ := metadata["title"].(string)
	if title == "" {
		if m := h1Re.FindStringSubmatch(content); m != nil {
			title = strings.TrimSpace(m[1])
		}
	}
	if title == "" {
		title = stem(path)
	}
	metadata["title"] = title

	return &Result{
		Content:    content,
		Title:      title,
		Metadata:   metadata,
		SourceType: types.SourceMarkdown,
	}, nil
}
