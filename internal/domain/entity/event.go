package entity

import "time"

// RequestEvent is the single structured record emitted per routed request.
// Write-only and fire-and-forget from the core's perspective.
type RequestEvent struct {
	RequestID        string        `json:"request_id"`
	SessionID        string        `json:"session_id,omitempty"`
	ProviderUsed     string        `json:"provider_used"`
	ModelUsed        string        `json:"model_used"`
	CacheHit         bool          `json:"cache_hit"`
	FallbackUsed     bool          `json:"fallback_used"`
	ValidationPassed bool          `json:"validation_passed"`
	ViolatedRules    []string      `json:"violated_rules,omitempty"`
	Duration         time.Duration `json:"duration_ms"`
	Error            string        `json:"error,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
}
