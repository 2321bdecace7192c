package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type stubEmbedAPI struct {
	resp openai.EmbeddingResponse
	err  error
}

func (s *stubEmbedAPI) CreateEmbeddings(_ context.Context, _ openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	return s.resp, s.err
}

func TestEmbed(t *testing.T) {
	api := &stubEmbedAPI{resp: openai.EmbeddingResponse{
		Data: []openai.Embedding{{Embedding: []float32{0.1, 0.2}}},
	}}
	e := NewEmbedderWithAPI(api, "")

	vec, err := e.Embed(context.Background(), "utah curfew")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || vec[1] != 0.2 {
		t.Errorf("vec = %v", vec)
	}
}

func TestEmbedError(t *testing.T) {
	e := NewEmbedderWithAPI(&stubEmbedAPI{err: errors.New("down")}, "")
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestEmbedNoData(t *testing.T) {
	e := NewEmbedderWithAPI(&stubEmbedAPI{}, "")
	if _, err := e.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on empty data")
	}
}
