package client

import (
	"context"

	"google.golang.org/genai"
)

// GeminiEmbedder produces embeddings with a Vertex AI embedding model. The
// same model embeds cache fingerprints and the reference corpus, so the
// two similarity spaces stay consistent.
type GeminiEmbedder struct {
	client *genai.Client
	model  string // e.g. "text-embedding-004"
}

// NewGeminiEmbedder reuses an existing genai client.
func NewGeminiEmbedder(c *genai.Client, model string) *GeminiEmbedder {
	return &GeminiEmbedder{
		client: c,
		model:  model,
	}
}

// CreateEmbedding embeds a single text.
func (e *GeminiEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, err
	}
	return res.Embeddings[0].Values, nil
}
