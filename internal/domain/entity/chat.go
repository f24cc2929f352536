package entity

// ChatRequest is the inbound payload from the webhook/voice layer.
type ChatRequest struct {
	Message       string `json:"message"`
	ModelOverride string `json:"model_override"`
	SessionID     string `json:"session_id"`
}

// GenerationParams are the knobs forwarded to a backend on each call.
type GenerationParams struct {
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// ChatResponse is what the caller always gets back, including the
// validation verdict so the voice layer can decide what to read out.
type ChatResponse struct {
	Text         string           `json:"text"`
	ProviderUsed string           `json:"provider_used"`
	ModelUsed    string           `json:"model_used"`
	CacheHit     bool             `json:"cache_hit"`
	Validation   ValidationReport `json:"validation"`
}
