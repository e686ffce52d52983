package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkvault/pkvault/internal/config"
)

func TestNewTextGeneratorAnthropic(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.AnthropicAPIKey = "key"

	gen, err := NewTextGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, (*AnthropicClient)(nil), gen)
}

func TestNewTextGeneratorMissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.AnthropicAPIKey = ""

	_, err := NewTextGenerator(cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	cfg.LLM.Provider = "openai"
	_, err = NewTextGenerator(cfg)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewTextGeneratorOllamaNeedsNoKey(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "ollama"

	gen, err := NewTextGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, (*OllamaClient)(nil), gen)
}

func TestNewTextGeneratorUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "bard"

	_, err := NewTextGenerator(cfg)
	assert.ErrorContains(t, err, "bard")
}

func TestNewEmbeddingGenerator(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.AnthropicAPIKey = "key"

	gen, err := NewEmbeddingGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, (*OllamaClient)(nil), gen)
	assert.Equal(t, cfg.Embedding.Model, gen.Model())

	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIAPIKey = "key"
	gen, err = NewEmbeddingGenerator(cfg)
	require.NoError(t, err)
	assert.IsType(t, (*OpenAIEmbeddingClient)(nil), gen)
}
