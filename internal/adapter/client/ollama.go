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

// OllamaClient is the local-runtime adapter, speaking the Ollama HTTP API
// of an instance on the same host or LAN.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	providerID string
}

// NewOllamaClient builds the adapter. The http.Client carries the caller's
// transport settings; per-request deadlines come from the context.
func NewOllamaClient(providerID, baseURL string, httpClient *http.Client) *OllamaClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OllamaClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		providerID: providerID,
	}
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate implements the uniform text-generation capability.
func (c *OllamaClient) Generate(ctx context.Context, modelID, prompt string, params entity.GenerationParams) (string, error) {
	body := ollamaGenerateRequest{
		Model:  modelID,
		Prompt: prompt,
		Stream: false,
	}
	if params.Temperature > 0 || params.MaxTokens > 0 {
		body.Options = map[string]any{}
		if params.Temperature > 0 {
			body.Options["temperature"] = params.Temperature
		}
		if params.MaxTokens > 0 {
			body.Options["num_predict"] = params.MaxTokens
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false, err)
	}
	req.Header.Set("Content-Type", "application/json")

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
			fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, truncate(raw, 200)))
	}

	var decoded ollamaGenerateResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, true,
			fmt.Errorf("malformed ollama response: %w", err))
	}
	if decoded.Error != "" {
		return "", entity.NewProviderError(c.providerID, entity.ProviderErrProtocol, false,
			fmt.Errorf("ollama error: %s", decoded.Error))
	}
	return decoded.Response, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
