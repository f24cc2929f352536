package usecase

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"steward-core/internal/config"
	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
)

// SemanticCache wraps a vector store with the layered caching policy.
// Every lookup resolves the effective configuration for its (provider,
// model) scope first; a disabled scope always misses. Entries are
// append-only: near-duplicates are stored alongside the originals and age
// out via the sweep.
type SemanticCache struct {
	store repository.VectorStore
	cfg   *config.Store
	now   func() time.Time
}

// NewSemanticCache builds the cache over a vector store backend.
func NewSemanticCache(store repository.VectorStore, cfg *config.Store) *SemanticCache {
	return &SemanticCache{store: store, cfg: cfg, now: time.Now}
}

// Lookup returns the best stored response for the request, or nil on a
// miss. The similarity threshold and maximum age come from the resolved
// configuration of the (provider, model) scope.
func (c *SemanticCache) Lookup(ctx context.Context, fingerprint string, embedding []float32, providerID, modelID string) (*entity.CacheHit, error) {
	rc := c.cfg.Resolve(providerID, modelID)
	if !rc.CachingEnabled {
		return nil, nil
	}
	if len(embedding) == 0 && fingerprint == "" {
		return nil, nil
	}

	return c.store.Search(ctx, entity.CacheQuery{
		Fingerprint:   fingerprint,
		Embedding:     embedding,
		ProviderID:    providerID,
		ModelID:       modelID,
		Threshold:     rc.SimilarityThreshold,
		OldestAllowed: c.now().Add(-rc.MaxCacheAge),
	})
}

// Store appends a new entry. Skipped silently when caching is disabled for
// the entry's scope.
func (c *SemanticCache) Store(ctx context.Context, entry entity.CacheEntry) error {
	rc := c.cfg.Resolve(entry.ProviderID, entry.ModelID)
	if !rc.CachingEnabled {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.now()
	}
	return c.store.Save(ctx, entry)
}

// StartSweeper runs the periodic eviction loop until ctx is cancelled.
// The cutoff uses the global max_cache_age as a safety net, independent of
// any tighter per-scope settings applied at lookup time.
func (c *SemanticCache) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				global := c.cfg.Resolve("", "")
				removed, err := c.store.Sweep(ctx, c.now().Add(-global.MaxCacheAge))
				if err != nil {
					log.Printf("[CACHE-SWEEP] sweep failed: %v", err)
				} else if removed > 0 {
					log.Printf("[CACHE-SWEEP] evicted %d expired entries", removed)
				}
			}
		}
	}()
}
