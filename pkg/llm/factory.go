package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nutriarab/nutriarab-engine/pkg/config"
)

// NewGenerator creates the chat completion backend from configuration.
// When an Anthropic API key is configured the Anthropic client is used;
// otherwise the OpenAI-compatible endpoint handles chat completion too.
func NewGenerator(cfg *config.AIConfig, logger *zap.Logger) (Generator, error) {
	if cfg.AnthropicAPIKey != "" {
		client, err := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, logger)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	}

	client, err := NewClient(&Config{
		Endpoint: cfg.LLMBaseURL,
		Model:    cfg.LLMModel,
		APIKey:   cfg.LLMAPIKey,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// NewEmbedder creates the embedding backend from configuration. Embeddings
// always go through the OpenAI-compatible endpoint, falling back to the chat
// endpoint and key when no dedicated embedding endpoint is configured.
func NewEmbedder(cfg *config.AIConfig, logger *zap.Logger) (Embedder, error) {
	client, err := NewClient(&Config{
		Endpoint:       cfg.EffectiveEmbeddingBaseURL(),
		EmbeddingModel: cfg.EmbeddingModel,
		APIKey:         cfg.EffectiveEmbeddingAPIKey(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	return client, nil
}
