package llm

import (
	"fmt"

	"github.com/recollect-ai/recollect/internal/config"
)

// NewTextGenerator creates the appropriate TextGenerator based on the LLM config.
func NewTextGenerator(cfg config.LLMConfig) (TextGenerator, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIModel,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			APIKey:            cfg.AnthropicAPIKey,
			Model:             cfg.AnthropicModel,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "ollama", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:           cfg.OllamaURL,
			Model:             cfg.OllamaModel,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.LLMProvider)
	}
}

// NewEmbeddingGenerator creates the appropriate EmbeddingGenerator. Anthropic
// exposes no embedding endpoint, so that provider falls back to Ollama for
// embeddings; an explicitly unsupported provider is an error.
func NewEmbeddingGenerator(cfg config.LLMConfig) (EmbeddingGenerator, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIEmbeddingClient(OpenAIEmbeddingConfig{
			APIKey:            cfg.OpenAIAPIKey,
			Model:             cfg.OpenAIEmbeddingModel,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "ollama", "anthropic", "":
		return NewOllamaClient(OllamaConfig{
			BaseURL:           cfg.OllamaURL,
			Model:             cfg.OllamaEmbeddingModel,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.LLMProvider)
	}
}
