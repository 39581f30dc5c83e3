// Package llm provides provider-agnostic text generation and embeddings for
// the analysis workflow, with an ordered fallback chain across providers.
package llm

import "context"

// TextRequest is a single chat-completion request.
type TextRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// Client generates text from a prompt. Implementations wrap one provider.
type Client interface {
	Name() string
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// Embedder produces an embedding vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
