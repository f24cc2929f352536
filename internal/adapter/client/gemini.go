package client

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"steward-core/internal/domain/entity"
)

// GeminiClient is the cloud-serverless adapter, speaking to Vertex AI.
type GeminiClient struct {
	client     *genai.Client
	providerID string
}

// NewGeminiClient dials Vertex AI with its own client.
func NewGeminiClient(ctx context.Context, providerID, projectID, location string) (*GeminiClient, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{client: c, providerID: providerID}, nil
}

// NewGeminiClientFromClient reuses an already constructed genai client.
func NewGeminiClientFromClient(c *genai.Client, providerID string) *GeminiClient {
	return &GeminiClient{client: c, providerID: providerID}
}

// Generate implements the uniform text-generation capability.
func (g *GeminiClient) Generate(ctx context.Context, modelID, prompt string, params entity.GenerationParams) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if params.Temperature > 0 {
		cfg.Temperature = genai.Ptr(params.Temperature)
	}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}

	result, err := g.client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), cfg)
	if err != nil {
		return "", classifyErr(g.providerID, err)
	}

	text := result.Text()
	if text == "" {
		return "", entity.NewProviderError(g.providerID, entity.ProviderErrProtocol, true,
			fmt.Errorf("model %s returned an empty candidate", modelID))
	}
	return text, nil
}
