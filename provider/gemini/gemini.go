// Package gemini implements the Google Gemini embedding provider.
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/wicaksana/lectern"
	"google.golang.org/api/option"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-004"

const defaultDimensions = 768

// Embedding implements lectern.EmbeddingProvider over the Gemini API.
type Embedding struct {
	client     *genai.Client
	model      string
	dimensions int
}

// Option configures an Embedding provider.
type Option func(*Embedding)

// WithModel overrides the embedding model. Default is DefaultModel.
func WithModel(model string) Option {
	return func(e *Embedding) { e.model = model }
}

// WithDimensions declares the vector size of the configured model.
func WithDimensions(n int) Option {
	return func(e *Embedding) { e.dimensions = n }
}

// NewEmbedding creates a Gemini embedding provider. The client is built
// once here; callers own the lifecycle via Close.
func NewEmbedding(ctx context.Context, apiKey string, opts ...Option) (*Embedding, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	e := &Embedding{client: client, model: DefaultModel, dimensions: defaultDimensions}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Name returns "gemini".
func (e *Embedding) Name() string { return "gemini" }

// Dimensions returns the embedding vector size.
func (e *Embedding) Dimensions() int { return e.dimensions }

// Embed returns one vector per input text, in input order, using a single
// batch request.
func (e *Embedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	em := e.client.EmbeddingModel(e.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, &lectern.ErrLLM{Provider: "gemini", Message: "batch embed: " + err.Error()}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &lectern.ErrLLM{
			Provider: "gemini",
			Message:  fmt.Sprintf("batch embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts)),
		}
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Close releases the underlying API client.
func (e *Embedding) Close() error {
	return e.client.Close()
}
