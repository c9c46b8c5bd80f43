package lectern

import "context"

// ModelProvider abstracts the LLM backend.
type ModelProvider interface {
	// Complete sends the transcript plus system instructions and returns a
	// complete response. A transport or API failure surfaces as an error,
	// never a partial Completion.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
	// Name returns the provider name (e.g. "anthropic").
	Name() string
}

// EmbeddingProvider abstracts text embedding.
type EmbeddingProvider interface {
	// Embed returns embedding vectors for the given texts, one per text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}
