// Package registry tracks configured backends and their liveness. The set
// of providers and the model→provider ownership are fixed at startup; only
// the per-provider status changes afterwards.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"steward-core/internal/domain/entity"
)

// ErrUnknownProvider indicates the requested provider is not registered.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

type providerEntry struct {
	desc   entity.ProviderDescriptor
	status atomic.Int32
}

// Registry maintains provider descriptors and a model→owner index.
// Liveness writes are single int32 swaps, so readers never need the lock
// to observe a consistent status.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*providerEntry
	order     []string
	models    map[string]entity.ModelDescriptor
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		providers: make(map[string]*providerEntry),
		models:    make(map[string]entity.ModelDescriptor),
	}
}

// Register adds a provider and its models. Called at configuration load;
// a provider starts out available.
func (r *Registry) Register(desc entity.ProviderDescriptor) error {
	if desc.ID == "" {
		return errors.New("provider id must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[desc.ID]; exists {
		return fmt.Errorf("provider %q already registered", desc.ID)
	}
	for _, m := range desc.Models {
		if owned, exists := r.models[m.ID]; exists {
			return fmt.Errorf("%w: %s (owned by %s)", ErrDuplicateModel, m.ID, owned.ProviderID)
		}
	}

	entry := &providerEntry{desc: desc}
	entry.status.Store(int32(entity.StatusAvailable))
	r.providers[desc.ID] = entry
	r.order = append(r.order, desc.ID)
	for _, m := range desc.Models {
		m.ProviderID = desc.ID
		r.models[m.ID] = m
	}
	return nil
}

// ListProviders returns descriptors in registration order with the current
// liveness filled in.
func (r *Registry) ListProviders() []entity.ProviderDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.ProviderDescriptor, 0, len(r.order))
	for _, id := range r.order {
		entry := r.providers[id]
		desc := entry.desc
		desc.Status = entity.ProviderStatus(entry.status.Load())
		out = append(out, desc)
	}
	return out
}

// ListModels returns the models exposed by one provider.
func (r *Registry) ListModels(providerID string) ([]entity.ModelDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.providers[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	out := make([]entity.ModelDescriptor, len(entry.desc.Models))
	copy(out, entry.desc.Models)
	return out, nil
}

// LookupModel resolves a model id to its descriptor and owning provider.
func (r *Registry) LookupModel(modelID string) (entity.ModelDescriptor, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.models[modelID]
	if !ok {
		return entity.ModelDescriptor{}, "", fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return m, m.ProviderID, nil
}

// Status reports the current liveness of a provider.
func (r *Registry) Status(providerID string) (entity.ProviderStatus, error) {
	r.mu.RLock()
	entry, ok := r.providers[providerID]
	r.mu.RUnlock()
	if !ok {
		return entity.StatusUnavailable, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	return entity.ProviderStatus(entry.status.Load()), nil
}

// MarkAvailable flips a provider back to available. Idempotent.
func (r *Registry) MarkAvailable(providerID string) {
	r.setStatus(providerID, entity.StatusAvailable)
}

// MarkDegraded flags a provider as responding but unhealthy. Idempotent.
func (r *Registry) MarkDegraded(providerID string) {
	r.setStatus(providerID, entity.StatusDegraded)
}

// MarkUnavailable takes a provider out of rotation without removing it, so
// a later probe or retry can bring it back. Idempotent.
func (r *Registry) MarkUnavailable(providerID string) {
	r.setStatus(providerID, entity.StatusUnavailable)
}

func (r *Registry) setStatus(providerID string, s entity.ProviderStatus) {
	r.mu.RLock()
	entry, ok := r.providers[providerID]
	r.mu.RUnlock()
	if ok {
		entry.status.Store(int32(s))
	}
}
