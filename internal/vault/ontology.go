// Package vault writes processed documents and entity pages into an
// Obsidian-compatible markdown vault, with content-hash dedup so a
// file re-ingested under a new name never lands twice.
package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// EntityDef describes one entity type in the ontology.
type EntityDef struct {
	Folder     string   `yaml:"folder"`
	Icon       string   `yaml:"icon"`
	Properties []string `yaml:"properties"`
}

// Ontology maps entity types to vault folders and page properties.
type Ontology struct {
	Entities      map[string]EntityDef `yaml:"entities"`
	Relationships []string             `yaml:"relationships"`
}

// DefaultOntology covers the built-in entity types. A user ontology
// file replaces it wholesale.
func DefaultOntology() *Ontology {
	return &Ontology{
		Entities: map[string]EntityDef{
			"Document":     {Folder: "documents", Icon: "📄", Properties: []string{"title", "date", "source", "summary"}},
			"Conversation": {Folder: "conversations", Icon: "💬", Properties: []string{"title", "date", "platform"}},
			"Meeting":      {Folder: "meetings", Icon: "🗓️", Properties: []string{"title", "date", "attendees"}},
			"Person":       {Folder: "entities/people", Icon: "👤", Properties: []string{"description", "related_entities"}},
			"Project":      {Folder: "entities/projects", Icon: "🛠️", Properties: []string{"description", "related_entities"}},
			"Organization": {Folder: "entities/organizations", Icon: "🏢", Properties: []string{"description", "related_entities"}},
			"Topic":        {Folder: "entities/topics", Icon: "🏷️", Properties: []string{"description", "related_entities"}},
		},
	}
}

// LoadOntology reads an ontology YAML file, falling back to the
// defaults when path is empty or missing.
func LoadOntology(path string) (*Ontology, error) {
	if path == "" {
		return DefaultOntology(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOntology(), nil
		}
		return nil, fmt.Errorf("vault: read ontology: %w", err)
	}
	var o Ontology
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("vault: parse ontology %s: %w", filepath.Base(path), err)
	}
	if o.Entities == nil {
		return DefaultOntology(), nil
	}
	return &o, nil
}

// Folder returns the vault folder for an entity type, defaulting to
// "documents" for unknown types.
func (o *Ontology) Folder(entityType string) string {
	if e, ok := o.Entities[entityType]; ok && e.Folder != "" {
		return e.Folder
	}
	return "documents"
}

// Icon returns the page icon for an entity type.
func (o *Ontology) Icon(entityType string) string {
	if e, ok := o.Entities[entityType]; ok && e.Icon != "" {
		return e.Icon
	}
	return "📄"
}

// ValidType reports whether the ontology defines the entity type.
func (o *Ontology) ValidType(entityType string) bool {
	_, ok := o.Entities[entityType]
	return ok
}

var (
	wikilinkRe     = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	properPhraseRe = regexp.MustCompile(`\b([A-Z][a-z]+(?:\s[A-Z][a-z]+){1,3})\b`)
)

// phraseStopList filters capitalized phrases that are not names.
var phraseStopList = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true,
	"May": true, "June": true, "July": true, "August": true,
	"September": true, "October": true, "November": true, "December": true,
}

// ExtractEntities finds candidate entity names in text: existing
// wikilinks plus capitalized multi-word phrases. Returned sorted.
func (o *Ontology) ExtractEntities(text string) []string {
	found := map[string]bool{}

	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		found[m[1]] = true
	}
	for _, m := range properPhraseRe.FindAllStringSubmatch(text, -1) {
		if !phraseStopList[m[1]] {
			found[m[1]] = true
		}
	}

	entities := make([]string, 0, len(found))
	for name := range found {
		entities = append(entities, name)
	}
	sort.Strings(entities)
	return entities
}
