package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"steward-core/internal/domain/entity"
)

// MarketplaceClient is the hosted-marketplace adapter. It speaks the
// OpenAI-compatible chat completions dialect used by aggregators such as
// OpenRouter, with bearer-token auth.
type MarketplaceClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	providerID string
}

// NewMarketplaceClient builds the adapter.
func NewMarketplaceClient(providerID, baseURL, apiKey string, httpClient *http.Client) *MarketplaceClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &MarketplaceClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		providerID: providerID,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements the uniform text-generation capability.
func (c *MarketplaceClient) Generate(ctx context.Context, modelID, prompt string, params entity.GenerationParams) (string, error) {
	body := chatCompletionRequest{
		Model:       modelID,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyErr(c.providerID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyErr(c.providerID, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(c.providerID, resp.StatusCode,
			fmt.Errorf("marketplace returned status %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var decoded chatCompletionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, true,
			fmt.Errorf("malformed completion response: %w", err))
	}
	if decoded.Error != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false,
			fmt.Errorf("marketplace error: %s", decoded.Error.Message))
	}
	if len(decoded.Choices) == 0 {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, true,
			fmt.Errorf("model %s returned no choices", modelID))
	}
	return decoded.Choices[0].Message.Content, nil
}
