package vault

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// documentFrontmatter is the YAML block at the top of every written
// document. Field order is the on-disk order.
type documentFrontmatter struct {
	Title       string   `yaml:"title"`
	Date        string   `yaml:"date"`
	Source      string   `yaml:"source"`
	Type        string   `yaml:"type"`
	SourceType  string   `yaml:"source_type"`
	ContentHash string   `yaml:"content_hash"`
	Tags        []string `yaml:"tags,omitempty"`
	Entities    []string `yaml:"entities,omitempty"`
}

func renderFrontmatter(v any) (string, error) {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("vault: marshal front matter: %w", err)
	}
	return "---\n" + string(raw) + "---\n", nil
}

// renderDocument assembles a full vault page: front matter, H1 title,
// body, and a Related Entities section of wikilinks.
func renderDocument(title, content string, fm documentFrontmatter, entities []string) (string, error) {
	head, err := renderFrontmatter(fm)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString("\n# " + title + "\n\n")
	b.WriteString(content)

	if len(entities) > 0 {
		b.WriteString("\n\n## Related Entities\n\n")
		for _, e := range entities {
			b.WriteString("- [[" + e + "]]\n")
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

// entityFrontmatter heads generated entity pages.
type entityFrontmatter struct {
	Title       string   `yaml:"title"`
	Type        string   `yaml:"type"`
	Tags        []string `yaml:"tags"`
	Description string   `yaml:"description,omitempty"`
}

// EntityPage holds what enrichment knows about a discovered entity.
type EntityPage struct {
	Name            string
	Type            string
	Description     string
	RelatedEntities []string
	SourceDocuments []string
}

// renderEntityPage assembles a page for a discovered entity.
func renderEntityPage(page EntityPage, icon string) (string, error) {
	head, err := renderFrontmatter(entityFrontmatter{
		Title:       page.Name,
		Type:        page.Type,
		Tags:        []string{strings.ToLower(page.Type)},
		Description: page.Description,
	})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(head)
	b.WriteString(fmt.Sprintf("\n# %s %s\n\n", icon, page.Name))
	b.WriteString(fmt.Sprintf("**Type:** %s\n", page.Type))

	if page.Description != "" {
		b.WriteString("\n## Description\n\n" + page.Description + "\n")
	}
	if len(page.RelatedEntities) > 0 {
		b.WriteString("\n## Related Entities\n\n")
		for _, e := range page.RelatedEntities {
			b.WriteString("- [[" + e + "]]\n")
		}
	}
	if len(page.SourceDocuments) > 0 {
		b.WriteString("\n## Source Documents\n\n")
		for _, d := range page.SourceDocuments {
			b.WriteString("- [[" + d + "]]\n")
		}
	}
	return b.String(), nil
}
