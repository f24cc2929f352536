package entity

// ProviderKind is the closed set of backend transports we speak.
type ProviderKind string

const (
	KindLocalRuntime    ProviderKind = "local"       // e.g. an Ollama instance on the LAN
	KindCloudServerless ProviderKind = "cloud"       // e.g. Vertex AI / Gemini
	KindMarketplace     ProviderKind = "marketplace" // e.g. an OpenRouter-style aggregator
)

// ProviderStatus tracks liveness of a backend. Stored as an int32 so the
// registry can swap it atomically.
type ProviderStatus int32

const (
	StatusAvailable ProviderStatus = iota
	StatusDegraded
	StatusUnavailable
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusDegraded:
		return "degraded"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ProviderDescriptor describes one configured backend. Created at startup,
// never deleted while the process runs; only Status changes afterwards.
type ProviderDescriptor struct {
	ID      string            `json:"id"`
	Kind    ProviderKind      `json:"kind"`
	BaseURL string            `json:"base_url,omitempty"`
	Status  ProviderStatus    `json:"-"`
	Models  []ModelDescriptor `json:"models"`
}

// ModelDescriptor is pure data owned by the registry. TargetPersona marks
// models that imitate the property manager's voice and therefore go through
// the stricter structural validation rules.
type ModelDescriptor struct {
	ID            string `json:"id"`
	ProviderID    string `json:"provider_id"`
	DisplayName   string `json:"display_name"`
	TargetPersona bool   `json:"target_persona"`
	Visible       bool   `json:"visible"`
	Preload       bool   `json:"preload"`
}
