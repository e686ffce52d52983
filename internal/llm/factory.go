package llm

import (
	"errors"
	"fmt"

	"github.com/pkvault/pkvault/internal/config"
)

// ErrMissingAPIKey is returned when a hosted provider is selected
// without a credential. Callers fail fast before any retrieval work.
var ErrMissingAPIKey = errors.New("missing API key")

// NewTextGenerator builds the TextGenerator named by cfg.LLM.Provider.
func NewTextGenerator(cfg *config.Config) (TextGenerator, error) {
	switch cfg.LLM.Provider {
	case "anthropic", "":
		if cfg.LLM.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or llm.anthropic_api_key", ErrMissingAPIKey)
		}
		return NewAnthropicClient(AnthropicConfig{
			APIKey: cfg.LLM.AnthropicAPIKey,
			Model:  cfg.LLM.AnthropicModel,
		}), nil

	case "openai":
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY or llm.openai_api_key", ErrMissingAPIKey)
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
			Model:  cfg.LLM.OpenAIModel,
		}), nil

	case "ollama":
		return NewOllamaClient(OllamaConfig{
			BaseURL: cfg.LLM.OllamaURL,
			Model:   cfg.LLM.OllamaModel,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.LLM.Provider)
	}
}

// NewEmbeddingGenerator builds the embedding client. OpenAI users get
// hosted embeddings; everyone else embeds locally through Ollama,
// since Anthropic has no embedding endpoint.
func NewEmbeddingGenerator(cfg *config.Config) (EmbeddingGenerator, error) {
	if cfg.LLM.Provider == "openai" {
		if cfg.LLM.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: set OPENAI_API_KEY or llm.openai_api_key", ErrMissingAPIKey)
		}
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{
			APIKey: cfg.LLM.OpenAIAPIKey,
		}), nil
	}
	return NewOllamaClient(OllamaConfig{
		BaseURL: cfg.Embedding.OllamaURL,
		Model:   cfg.Embedding.Model,
	}), nil
}
