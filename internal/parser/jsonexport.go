package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkvault/pkvault/pkg/types"
)

// JSONParser handles .json files with awareness of the two chat export
// shapes found in the wild: ChatGPT exports (a tree of message nodes
// under a "mapping" key, ordered by create_time) and Claude exports (a
// flat "chat_messages" list with sender/text fields). Detection is an
// explicit attempt chain: try shape A, then shape B, then fall back to
// pretty-printing the JSON as-is. Each attempt returns a definite
// yes/no instead of relying on errors for control flow.
type JSONParser struct{}

// Parse decodes the file and runs the shape-detection chain.
func (p *JSONParser) Parse(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("json: read %s: %w", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("json: parse %s: %w", path, err)
	}

	fallback := stem(path)

	if res, ok := tryChatGPT(doc, fallback); ok {
		return res, nil
	}
	if res, ok := tryClaude(doc, fallback); ok {
		return res, nil
	}

	// Generic JSON: re-render indented so the content is readable.
	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json: render %s: %w", path, err)
	}
	return &Result{
		Content:    string(pretty),
		Title:      fallback,
		Metadata:   map[string]any{},
		SourceType: types.SourceJSON,
	}, nil
}

// conversations normalizes a decoded document into a list of
// conversation objects: a bare object becomes a one-element list.
func conversations(doc any) []map[string]any {
	switch v := doc.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		convs := make([]map[string]any, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil
			}
			convs = append(convs, m)
		}
		return convs
	default:
		return nil
	}
}

// tryChatGPT attempts the ChatGPT export shape. Each conversation holds
// a "mapping" of node-ID to message node; chronological order is
// reconstructed from the per-message create_time.
func tryChatGPT(doc any, fallbackTitle string) (*Result, bool) {
	convs := conversations(doc)
	if len(convs) == 0 {
		return nil, false
	}
	if _, ok := convs[0]["mapping"].(map[string]any); !ok {
		return nil, false
	}

	var parts []string
	title := fallbackTitle

	for ci, conv := range convs {
		convTitle, _ := conv["title"].(string)
		if convTitle == "" {
			convTitle = "Untitled"
		}
		if ci == 0 && convTitle != "Untitled" {
			title = convTitle
		}
		parts = append(parts, fmt.Sprintf("## %s\n", convTitle))

		mapping, _ := conv["mapping"].(map[string]any)

		type timedMessage struct {
			createTime float64
			role       string
			text       string
		}
		var messages []timedMessage

		for _, nodeAny := range mapping {
			node, ok := nodeAny.(map[string]any)
			if !ok {
				continue
			}
			msg, ok := node["message"].(map[string]any)
			if !ok {
				continue
			}
			content, _ := msg["content"].(map[string]any)
			rawParts, _ := content["parts"].([]any)
			var lines []string
			for _, rp := range rawParts {
				if s, ok := rp.(string); ok {
					lines = append(lines, s)
				}
			}
			text := strings.TrimSpace(strings.Join(lines, "\n"))
			if text == "" {
				continue
			}
			role := "unknown"
			if author, ok := msg["author"].(map[string]any); ok {
				if r, ok := author["role"].(string); ok && r != "" {
					role = r
				}
			}
			createTime, _ := msg["create_time"].(float64)
			messages = append(messages, timedMessage{createTime, role, text})
		}

		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].createTime < messages[j].createTime
		})
		for _, m := range messages {
			parts = append(parts, fmt.Sprintf("**%s**: %s\n", m.role, m.text))
		}
	}

	return &Result{
		Content:    strings.Join(parts, "\n"),
		Title:      title,
		Metadata:   map[string]any{"platform": "chatgpt"},
		SourceType: types.SourceConversation,
	}, true
}

// tryClaude attempts the Claude export shape: a list of conversations
// each carrying a flat chat_messages list.
func tryClaude(doc any, fallbackTitle string) (*Result, bool) {
	convs := conversations(doc)
	if len(convs) == 0 {
		return nil, false
	}
	if _, ok := convs[0]["chat_messages"].([]any); !ok {
		return nil, false
	}

	var parts []string
	title := fallbackTitle
	if name, ok := convs[0]["name"].(string); ok && name != "" {
		title = name
	}

	for _, conv := range convs {
		convTitle, _ := conv["name"].(string)
		if convTitle == "" {
			convTitle, _ = conv["title"].(string)
		}
		if convTitle == "" {
			convTitle = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("## %s\n", convTitle))

		msgs, _ := conv["chat_messages"].([]any)
		for _, msgAny := range msgs {
			msg, ok := msgAny.(map[string]any)
			if !ok {
				continue
			}
			role, _ := msg["sender"].(string)
			if role == "" {
				role = "unknown"
			}
			text, _ := msg["text"].(string)
			if text == "" {
				// Newer exports nest text under content blocks.
				switch content := msg["content"].(type) {
				case string:
					text = content
				case []any:
					var blocks []string
					for _, b := range content {
						if bm, ok := b.(map[string]any); ok {
							if t, ok := bm["text"].(string); ok {
								blocks = append(blocks, t)
							}
						}
					}
					text = strings.Join(blocks, "\n")
				}
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			parts = append(parts, fmt.Sprintf("**%s**: %s\n", role, text))
		}
	}

	return &Result{
		Content:    strings.Join(parts, "\n"),
		Title:      title,
		Metadata:   map[string]any{"platform": "claude"},
		SourceType: types.SourceConversation,
	}, true
}
