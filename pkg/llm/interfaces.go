// Package llm provides the AI-provider clients behind the resolution
// engine: an OpenAI-compatible client for embeddings and chat completion,
// and an Anthropic client usable as an alternate generator.
package llm

import (
	"context"
)

// Generator produces a chat completion for a prompt. The breakdown service
// depends on this interface so either provider (or a mock) can back it.
type Generator interface {
	// GenerateResponse generates a chat completion response.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Embedder turns text into a fixed-length embedding vector.
type Embedder interface {
	// CreateEmbedding generates an embedding vector for the input text.
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// Ensure the concrete clients satisfy the interfaces at compile time.
var (
	_ Generator = (*Client)(nil)
	_ Embedder  = (*Client)(nil)
	_ Generator = (*AnthropicClient)(nil)
)
