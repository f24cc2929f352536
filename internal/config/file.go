package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"steward-core/internal/domain/entity"
)

// Duration wraps time.Duration so YAML values like "24h" parse directly.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON renders the duration in its human form for config export.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Duration(d).String())), nil
}

// File is the static gateway configuration parsed from YAML at startup.
type File struct {
	Server     ServerConfig     `yaml:"server"`
	Routing    RoutingConfig    `yaml:"routing"`
	Providers  []ProviderConfig `yaml:"providers"`
	Cache      CacheConfig      `yaml:"cache"`
	Validation ValidationConfig `yaml:"validation"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Limits     LimitsConfig     `yaml:"limits"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// RoutingConfig names the default and fallback targets.
type RoutingConfig struct {
	DefaultProvider string         `yaml:"default_provider"`
	DefaultModel    string         `yaml:"default_model"`
	Fallback        FallbackConfig `yaml:"fallback"`
	RequestTimeout  Duration       `yaml:"request_timeout"`
}

// FallbackConfig is the single secondary target tried when the primary
// provider fails.
type FallbackConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// ProviderConfig declares one backend and the models it exposes.
type ProviderConfig struct {
	ID        string        `yaml:"id"`
	Kind      string        `yaml:"kind"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Models    []ModelConfig `yaml:"models"`
}

// ModelConfig describes a model exposed by a provider.
type ModelConfig struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	TargetPersona bool   `yaml:"target_persona"`
	Visible       bool   `yaml:"visible"`
	Preload       bool   `yaml:"preload"`
}

// CacheConfig seeds the three-level policy hierarchy and the sweep cadence.
type CacheConfig struct {
	Global        Node            `yaml:"global"`
	Providers     map[string]Node `yaml:"providers"`
	Models        map[string]Node `yaml:"models"`
	SweepInterval Duration        `yaml:"sweep_interval"`
}

// ValidationConfig tunes the response validator.
type ValidationConfig struct {
	MinLength            int      `yaml:"min_length"`
	MaxLength            int      `yaml:"max_length"`
	PassThreshold        float64  `yaml:"pass_threshold"`
	InstructionFragments []string `yaml:"instruction_fragments"`
}

// CorpusConfig points at the extracted reference-response corpus.
type CorpusConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// LimitsConfig caps token usage per session. Zero disables the limiter.
type LimitsConfig struct {
	SessionTokens int `yaml:"session_tokens"`
}

var validKinds = map[string]entity.ProviderKind{
	string(entity.KindLocalRuntime):    entity.KindLocalRuntime,
	string(entity.KindCloudServerless): entity.KindCloudServerless,
	string(entity.KindMarketplace):     entity.KindMarketplace,
}

// Load reads YAML configuration from disk, expands environment variables,
// and validates the result.
func Load(path string) (File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return File{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var f File
	if err := yaml.Unmarshal([]byte(expanded), &f); err != nil {
		return File{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate performs strict sanity checks on the configuration.
func (f File) Validate() error {
	if f.Server.Port <= 0 || f.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", f.Server.Port)
	}
	if len(f.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}

	providerIDs := make(map[string]struct{}, len(f.Providers))
	modelIDs := make(map[string]string)
	for _, p := range f.Providers {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("provider id must not be empty")
		}
		if _, dup := providerIDs[p.ID]; dup {
			return fmt.Errorf("provider %s: declared twice", p.ID)
		}
		providerIDs[p.ID] = struct{}{}

		if _, ok := validKinds[p.Kind]; !ok {
			return fmt.Errorf("provider %s: kind %q must be one of local, cloud, marketplace", p.ID, p.Kind)
		}
		if p.Kind != string(entity.KindCloudServerless) && strings.TrimSpace(p.BaseURL) == "" {
			return fmt.Errorf("provider %s: base_url must be provided", p.ID)
		}
		if len(p.Models) == 0 {
			return fmt.Errorf("provider %s: at least one model must be configured", p.ID)
		}
		for _, m := range p.Models {
			if strings.TrimSpace(m.ID) == "" {
				return fmt.Errorf("provider %s: model id must not be empty", p.ID)
			}
			if owner, dup := modelIDs[m.ID]; dup {
				return fmt.Errorf("model %s: already owned by provider %s", m.ID, owner)
			}
			modelIDs[m.ID] = p.ID
		}
	}

	if _, ok := providerIDs[f.Routing.DefaultProvider]; !ok {
		return fmt.Errorf("routing.default_provider %q is not a configured provider", f.Routing.DefaultProvider)
	}
	if owner, ok := modelIDs[f.Routing.DefaultModel]; !ok || owner != f.Routing.DefaultProvider {
		return fmt.Errorf("routing.default_model %q is not a model of provider %q", f.Routing.DefaultModel, f.Routing.DefaultProvider)
	}
	if f.Routing.Fallback.Enabled {
		if _, ok := providerIDs[f.Routing.Fallback.Provider]; !ok {
			return fmt.Errorf("routing.fallback.provider %q is not a configured provider", f.Routing.Fallback.Provider)
		}
		if owner, ok := modelIDs[f.Routing.Fallback.Model]; !ok || owner != f.Routing.Fallback.Provider {
			return fmt.Errorf("routing.fallback.model %q is not a model of provider %q", f.Routing.Fallback.Model, f.Routing.Fallback.Provider)
		}
	}

	for id := range f.Cache.Providers {
		if _, ok := providerIDs[id]; !ok {
			return fmt.Errorf("cache.providers: %q is not a configured provider", id)
		}
	}
	for id := range f.Cache.Models {
		if _, ok := modelIDs[id]; !ok {
			return fmt.Errorf("cache.models: %q is not a configured model", id)
		}
	}

	if f.Validation.MinLength < 0 || (f.Validation.MaxLength > 0 && f.Validation.MaxLength < f.Validation.MinLength) {
		return fmt.Errorf("validation: length bounds [%d,%d] are inverted", f.Validation.MinLength, f.Validation.MaxLength)
	}
	if f.Validation.PassThreshold < 0 || f.Validation.PassThreshold > 1 {
		return fmt.Errorf("validation.pass_threshold must be within [0,1], got %v", f.Validation.PassThreshold)
	}

	return nil
}

// BuildStore seeds a scope-aware Store from the file's cache section.
func (f File) BuildStore() (*Store, error) {
	var providerIDs, modelIDs []string
	for _, p := range f.Providers {
		providerIDs = append(providerIDs, p.ID)
		for _, m := range p.Models {
			modelIDs = append(modelIDs, m.ID)
		}
	}
	s := NewStore(providerIDs, modelIDs)
	if err := s.SetNode(ScopeGlobal, f.Cache.Global); err != nil {
		return nil, err
	}
	for id, n := range f.Cache.Providers {
		if err := s.SetNode(id, n); err != nil {
			return nil, err
		}
	}
	for id, n := range f.Cache.Models {
		if err := s.SetNode(id, n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Descriptors converts the provider section into registry descriptors.
func (f File) Descriptors() []entity.ProviderDescriptor {
	out := make([]entity.ProviderDescriptor, 0, len(f.Providers))
	for _, p := range f.Providers {
		desc := entity.ProviderDescriptor{
			ID:      p.ID,
			Kind:    validKinds[p.Kind],
			BaseURL: p.BaseURL,
		}
		for _, m := range p.Models {
			desc.Models = append(desc.Models, entity.ModelDescriptor{
				ID:            m.ID,
				ProviderID:    p.ID,
				DisplayName:   m.DisplayName,
				TargetPersona: m.TargetPersona,
				Visible:       m.Visible,
				Preload:       m.Preload,
			})
		}
		out = append(out, desc)
	}
	return out
}
