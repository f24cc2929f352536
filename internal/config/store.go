// Package config holds the layered caching/routing policy: a global scope
// overridden per provider, overridden again per model. The store is the
// single mutable configuration surface of the gateway; everything else
// reads resolved snapshots from it.
package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ScopeGlobal is the root of the override hierarchy.
const ScopeGlobal = "global"

// Recognized per-scope fields accepted by Update. Anything under the
// "extra." prefix goes into the scope's free-form map.
const (
	FieldCachingEnabled      = "caching_enabled"
	FieldSimilarityThreshold = "similarity_threshold"
	FieldMaxCacheAge         = "max_cache_age"
	extraPrefix              = "extra."
)

// Node is one scope's partial configuration. Nil fields are "unset" and
// never blank out a value resolved at a lower precedence level.
type Node struct {
	CachingEnabled      *bool          `json:"caching_enabled,omitempty" yaml:"caching_enabled"`
	SimilarityThreshold *float64       `json:"similarity_threshold,omitempty" yaml:"similarity_threshold"`
	MaxCacheAge         *Duration      `json:"max_cache_age,omitempty" yaml:"max_cache_age"`
	Extra               map[string]any `json:"extra,omitempty" yaml:"extra"`
}

func (n Node) clone() Node {
	out := Node{}
	if n.CachingEnabled != nil {
		v := *n.CachingEnabled
		out.CachingEnabled = &v
	}
	if n.SimilarityThreshold != nil {
		v := *n.SimilarityThreshold
		out.SimilarityThreshold = &v
	}
	if n.MaxCacheAge != nil {
		v := *n.MaxCacheAge
		out.MaxCacheAge = &v
	}
	if n.Extra != nil {
		out.Extra = make(map[string]any, len(n.Extra))
		for k, v := range n.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Resolved is the fully merged configuration for one (provider, model)
// pair. Every field has a concrete value.
type Resolved struct {
	CachingEnabled      bool           `json:"caching_enabled"`
	SimilarityThreshold float64        `json:"similarity_threshold"`
	MaxCacheAge         time.Duration  `json:"max_cache_age"`
	Extra               map[string]any `json:"extra,omitempty"`
}

func (r *Resolved) apply(n Node) {
	if n.CachingEnabled != nil {
		r.CachingEnabled = *n.CachingEnabled
	}
	if n.SimilarityThreshold != nil {
		r.SimilarityThreshold = *n.SimilarityThreshold
	}
	if n.MaxCacheAge != nil {
		r.MaxCacheAge = time.Duration(*n.MaxCacheAge)
	}
	for k, v := range n.Extra {
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = v
	}
}

// Defaults applied below the global scope so Resolve always yields a
// complete policy even for an empty store.
var defaults = Resolved{
	CachingEnabled:      true,
	SimilarityThreshold: 0.80,
	MaxCacheAge:         24 * time.Hour,
}

// ConfigError reports a rejected update. No partial write ever accompanies
// one of these.
type ConfigError struct {
	Scope  string
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: scope %q field %q: %s", e.Scope, e.Field, e.Reason)
}

// Snapshot is a full copy of the stored hierarchy, for backup/export.
type Snapshot struct {
	Global    Node            `json:"global"`
	Providers map[string]Node `json:"providers"`
	Models    map[string]Node `json:"models"`
}

// Store owns the hierarchy. Reads copy under a shared lock so a concurrent
// Update is never observed half-applied; Update holds the exclusive lock
// only for the in-memory write.
type Store struct {
	mu        sync.RWMutex
	global    Node
	providers map[string]Node
	models    map[string]Node

	knownProviders map[string]struct{}
	knownModels    map[string]struct{}
}

// NewStore builds a store that accepts updates for the global scope plus
// the given provider and model ids.
func NewStore(providerIDs, modelIDs []string) *Store {
	s := &Store{
		providers:      make(map[string]Node),
		models:         make(map[string]Node),
		knownProviders: make(map[string]struct{}, len(providerIDs)),
		knownModels:    make(map[string]struct{}, len(modelIDs)),
	}
	for _, id := range providerIDs {
		s.knownProviders[id] = struct{}{}
	}
	for _, id := range modelIDs {
		s.knownModels[id] = struct{}{}
	}
	return s
}

// SetNode installs a whole scope node, typically while loading the config
// file at startup.
func (s *Store) SetNode(scope string, n Node) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case scope == ScopeGlobal:
		s.global = n.clone()
	case s.isProvider(scope):
		s.providers[scope] = n.clone()
	default:
		s.models[scope] = n.clone()
	}
	return nil
}

// Resolve merges global → provider → model for the given pair. Pure read;
// unknown ids simply contribute no override.
func (s *Store) Resolve(providerID, modelID string) Resolved {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := defaults
	out.Extra = nil
	out.apply(s.global)
	if n, ok := s.providers[providerID]; ok {
		out.apply(n)
	}
	if n, ok := s.models[modelID]; ok {
		out.apply(n)
	}
	return out
}

// Update validates the scope and field, then applies a single-field write
// under the exclusive lock. Unknown scopes or fields are rejected with a
// *ConfigError and leave the store untouched.
func (s *Store) Update(scope, field string, value any) error {
	if err := s.checkScope(scope); err != nil {
		return err
	}

	// Parse and validate fully before touching any state.
	var mutate func(*Node)
	switch {
	case field == FieldCachingEnabled:
		b, ok := value.(bool)
		if !ok {
			return &ConfigError{Scope: scope, Field: field, Reason: "expected a boolean"}
		}
		mutate = func(n *Node) { n.CachingEnabled = &b }
	case field == FieldSimilarityThreshold:
		f, ok := toFloat(value)
		if !ok {
			return &ConfigError{Scope: scope, Field: field, Reason: "expected a number"}
		}
		if f < 0 || f > 1 {
			return &ConfigError{Scope: scope, Field: field, Reason: "must be within [0,1]"}
		}
		mutate = func(n *Node) { n.SimilarityThreshold = &f }
	case field == FieldMaxCacheAge:
		d, err := toDuration(value)
		if err != nil {
			return &ConfigError{Scope: scope, Field: field, Reason: err.Error()}
		}
		if d <= 0 {
			return &ConfigError{Scope: scope, Field: field, Reason: "must be positive"}
		}
		mutate = func(n *Node) { dd := Duration(d); n.MaxCacheAge = &dd }
	case strings.HasPrefix(field, extraPrefix) && len(field) > len(extraPrefix):
		key := field[len(extraPrefix):]
		mutate = func(n *Node) {
			if n.Extra == nil {
				n.Extra = make(map[string]any)
			}
			n.Extra[key] = value
		}
	default:
		return &ConfigError{Scope: scope, Field: field, Reason: "unrecognized field"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case scope == ScopeGlobal:
		mutate(&s.global)
	case s.isProvider(scope):
		n := s.providers[scope]
		mutate(&n)
		s.providers[scope] = n
	default:
		n := s.models[scope]
		mutate(&n)
		s.models[scope] = n
	}
	return nil
}

// Snapshot deep-copies the whole hierarchy for export.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{
		Global:    s.global.clone(),
		Providers: make(map[string]Node, len(s.providers)),
		Models:    make(map[string]Node, len(s.models)),
	}
	for id, n := range s.providers {
		out.Providers[id] = n.clone()
	}
	for id, n := range s.models {
		out.Models[id] = n.clone()
	}
	return out
}

// Scopes lists the ids Update accepts, for admin error messages.
func (s *Store) Scopes() []string {
	out := []string{ScopeGlobal}
	for id := range s.knownProviders {
		out = append(out, id)
	}
	for id := range s.knownModels {
		out = append(out, id)
	}
	sort.Strings(out[1:])
	return out
}

func (s *Store) checkScope(scope string) error {
	if scope == ScopeGlobal || s.isProvider(scope) || s.isModel(scope) {
		return nil
	}
	return &ConfigError{Scope: scope, Reason: "unknown scope"}
}

func (s *Store) isProvider(id string) bool {
	_, ok := s.knownProviders[id]
	return ok
}

func (s *Store) isModel(id string) bool {
	_, ok := s.knownModels[id]
	return ok
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func toDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case time.Duration:
		return x, nil
	case Duration:
		return time.Duration(x), nil
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", x)
		}
		return d, nil
	case float64:
		// JSON numbers arrive as float64; interpret as seconds.
		return time.Duration(x * float64(time.Second)), nil
	case int:
		return time.Duration(x) * time.Second, nil
	}
	return 0, fmt.Errorf("expected a duration string or seconds")
}
