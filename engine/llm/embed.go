package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type embeddingAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Embedder computes query and chunk embeddings through an
// OpenAI-compatible API.
type Embedder struct {
	api   embeddingAPI
	model openai.EmbeddingModel
}

// NewEmbedder creates an Embedder. model defaults to
// text-embedding-3-small.
func NewEmbedder(baseURL, apiKey, model string) *Embedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return NewEmbedderWithAPI(openai.NewClientWithConfig(cfg), model)
}

// NewEmbedderWithAPI creates an Embedder over an injected API. Used in
// tests.
func NewEmbedderWithAPI(api embeddingAPI, model string) *Embedder {
	m := openai.SmallEmbedding3
	if model != "" {
		m = openai.EmbeddingModel(model)
	}
	return &Embedder{api: api, model: m}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: embed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("llm: embed: no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}
