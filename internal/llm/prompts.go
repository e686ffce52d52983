package llm

import (
	"fmt"
	"strings"
)

// PromptDocument is one cluster member formatted into an analysis
// prompt.
type PromptDocument struct {
	Title   string
	Content string
}

// maxPromptDocChars bounds how much of each document enters the
// prompt.
const maxPromptDocChars = 1000

// ClusterAnalysisSystem primes the model for enrichment calls.
const ClusterAnalysisSystem = "You analyze groups of semantically similar documents from a personal knowledge base and reply with structured JSON."

const clusterAnalysisTemplate = `Analyze these related documents from a personal knowledge base. They were clustered together by semantic similarity.

Documents:
%s

Please provide:
1. **Cluster Label**: A short descriptive name for this group of documents (2-5 words)
2. **Shared Entities**: List any people, projects, organizations, or topics mentioned across multiple documents
3. **Relationship Summary**: Describe how these documents relate to each other (1-2 sentences)
4. **Suggested Tags**: 3-5 tags that would help categorize these documents

Respond in this exact JSON format:
{
  "label": "cluster label here",
  "entities": [
    {"name": "Entity Name", "type": "Person|Project|Topic|Organization", "mentions": 2}
  ],
  "relationship_summary": "summary here",
  "tags": ["tag1", "tag2", "tag3"]
}`

// BuildClusterPrompt renders the cluster analysis prompt, truncating
// each document body.
func BuildClusterPrompt(docs []PromptDocument) string {
	sections := make([]string, 0, len(docs))
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}
		sections = append(sections, fmt.Sprintf("### %s\n%s", title, truncate(d.Content, maxPromptDocChars)))
	}
	return fmt.Sprintf(clusterAnalysisTemplate, strings.Join(sections, "\n\n---\n\n"))
}
