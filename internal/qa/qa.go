// Package qa answers questions over the vault with
// retrieval-augmented generation: semantic search picks the context,
// the LLM synthesizes the answer.
package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkvault/pkvault/internal/embedding"
	"github.com/pkvault/pkvault/internal/llm"
)

// DefaultChunks is how many retrieved chunks feed the prompt.
const DefaultChunks = 10

// NoResultsAnswer is returned without an LLM call when retrieval
// comes back empty.
const NoResultsAnswer = "No relevant documents found. Have you run 'pkvault embed'?"

const systemPrompt = "You are a helpful assistant answering questions based on the user's personal knowledge base. " +
	"Use ONLY the provided context to answer. If the context doesn't contain enough information, say so. " +
	"Reference specific documents by their titles when relevant."

// Searcher is the retrieval side of the pipeline.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]embedding.SearchResult, error)
}

// Answer is a synthesized reply plus the titles it drew from.
type Answer struct {
	Answer  string
	Sources []string
}

// Engine wires retrieval and generation together.
type Engine struct {
	gen      llm.TextGenerator
	searcher Searcher
}

// New returns a QA engine.
func New(gen llm.TextGenerator, searcher Searcher) *Engine {
	return &Engine{gen: gen, searcher: searcher}
}

// Ask retrieves the nChunks most relevant chunks and synthesizes an
// answer from them. nChunks <= 0 uses DefaultChunks.
func (e *Engine) Ask(ctx context.Context, question string, nChunks int) (*Answer, error) {
	if nChunks <= 0 {
		nChunks = DefaultChunks
	}

	results, err := e.searcher.Search(ctx, question, nChunks)
	if err != nil {
		return nil, fmt.Errorf("qa: search: %w", err)
	}
	if len(results) == 0 {
		return &Answer{Answer: NoResultsAnswer}, nil
	}

	var (
		blocks  []string
		sources []string
		seen    = map[string]bool{}
	)
	for i, r := range results {
		title, _ := r.Metadata["title"].(string)
		if title == "" {
			title = "Unknown"
		}
		if !seen[title] {
			seen[title] = true
			sources = append(sources, title)
		}
		blocks = append(blocks, fmt.Sprintf("[%d] %s:\n%s", i+1, title, r.Document))
	}

	prompt := fmt.Sprintf("Context from my knowledge vault:\n\n%s\n\n---\n\nQuestion: %s",
		strings.Join(blocks, "\n\n---\n\n"), question)

	text, err := e.gen.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("qa: complete: %w", err)
	}
	return &Answer{Answer: text, Sources: sources}, nil
}
