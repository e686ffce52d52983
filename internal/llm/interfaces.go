// Package llm holds the clients for the external language-model
// collaborators: answer synthesis and cluster enrichment go through a
// TextGenerator, embedding generation through an EmbeddingGenerator.
// Every HTTP call is wrapped in a circuit breaker so a dead endpoint
// fails fast instead of stalling a whole pipeline run.
package llm

import "context"

// TextGenerator produces free text from a system/user prompt pair.
type TextGenerator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Model() string
}

// EmbeddingGenerator turns text into a vector. Returns float32; the
// storage layer widens to float64.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}
