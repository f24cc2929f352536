package usecase

import (
	"context"
	"log"
	"time"

	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
	"steward-core/internal/registry"
)

// Prober issues tiny generation calls to flip provider liveness. Run once
// at startup (doubling as a warm-up) and on demand from the admin surface
// to bring a provider back after an outage.
type Prober struct {
	registry *registry.Registry
	adapters map[string]repository.TextProvider
	timeout  time.Duration
}

// NewProber builds a prober over the same adapter set the router uses.
func NewProber(reg *registry.Registry, adapters map[string]repository.TextProvider, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Prober{registry: reg, adapters: adapters, timeout: timeout}
}

// Probe checks one provider and updates its liveness accordingly.
func (p *Prober) Probe(ctx context.Context, providerID string) error {
	adapter, ok := p.adapters[providerID]
	if !ok {
		p.registry.MarkUnavailable(providerID)
		return nil
	}
	models, err := p.registry.ListModels(providerID)
	if err != nil || len(models) == 0 {
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := adapter.Generate(pctx, models[0].ID, "ping", entity.GenerationParams{MaxTokens: 8}); err != nil {
		log.Printf("[PROBE] provider %s failed probe: %v", providerID, err)
		p.registry.MarkUnavailable(providerID)
		return err
	}
	p.registry.MarkAvailable(providerID)
	return nil
}

// ProbeAll probes every registered provider.
func (p *Prober) ProbeAll(ctx context.Context) {
	for _, desc := range p.registry.ListProviders() {
		_ = p.Probe(ctx, desc.ID)
	}
}
