package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// EnrichmentResponse is the structured reply expected from a cluster
// analysis prompt.
type EnrichmentResponse struct {
	Label               string   `json:"label"`
	Entities            []Entity `json:"entities"`
	RelationshipSummary string   `json:"relationship_summary"`
	Tags                []string `json:"tags"`
}

// Entity is one named entity the model found across cluster members.
type Entity struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mentions int    `json:"mentions"`
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*\n?(.*?)\n?\\s*```")
	jsonObjectRe  = regexp.MustCompile(`(?s)\{.*\}`)
)

// ParseEnrichment recovers an EnrichmentResponse from model output.
// Models wrap JSON in prose and code fences unpredictably, so the
// attempts go from strictest to loosest: the whole reply as JSON, then
// a fenced code block, then the outermost brace-delimited object
// anywhere in the text. If nothing parses, the raw text becomes the
// label so the caller still gets something usable.
func ParseEnrichment(text string) *EnrichmentResponse {
	trimmed := strings.TrimSpace(text)

	if resp := tryParse(trimmed); resp != nil {
		return resp
	}

	if m := fencedBlockRe.FindStringSubmatch(trimmed); m != nil {
		if resp := tryParse(strings.TrimSpace(m[1])); resp != nil {
			return resp
		}
	}

	if m := jsonObjectRe.FindString(trimmed); m != "" {
		if resp := tryParse(m); resp != nil {
			return resp
		}
	}

	return &EnrichmentResponse{
		Label:               truncate(trimmed, 100),
		RelationshipSummary: trimmed,
	}
}

func tryParse(candidate string) *EnrichmentResponse {
	if candidate == "" || candidate[0] != '{' {
		return nil
	}
	var resp EnrichmentResponse
	if err := json.Unmarshal([]byte(candidate), &resp); err != nil {
		return nil
	}
	return &resp
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
