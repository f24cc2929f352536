package store

import (
	"context"
	"sync"
	"time"

	"steward-core/internal/domain/entity"
)

// MemoryStore keeps cache entries in process memory. Entries are appended
// fully built under the write lock, so a concurrent Search can never see a
// half-written record. Suitable for single-instance deployments and tests;
// QdrantStore covers the shared case.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []entity.CacheEntry
}

// NewMemoryStore constructs an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Search scans entries scoped to the query's provider/model and returns
// the best match clearing the threshold and the age cutoff. Ties on
// similarity prefer the most recently created entry. An entry with the
// exact fingerprint counts as similarity 1.0 regardless of the embedding.
func (s *MemoryStore) Search(ctx context.Context, q entity.CacheQuery) (*entity.CacheHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *entity.CacheHit
	for i := range s.entries {
		e := &s.entries[i]
		if e.ProviderID != q.ProviderID || e.ModelID != q.ModelID {
			continue
		}
		if !e.CreatedAt.After(q.OldestAllowed) {
			continue
		}

		sim := entity.Cosine(q.Embedding, e.Embedding)
		if q.Fingerprint != "" && e.Fingerprint == q.Fingerprint {
			sim = 1.0
		}
		if sim < q.Threshold {
			continue
		}
		if best == nil || sim > best.Similarity ||
			(sim == best.Similarity && e.CreatedAt.After(best.Entry.CreatedAt)) {
			best = &entity.CacheHit{Entry: *e, Similarity: sim}
		}
	}
	return best, nil
}

// Save appends the entry. The entry is copied in whole under the lock;
// readers either see it completely or not at all.
func (s *MemoryStore) Save(ctx context.Context, entry entity.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

// Sweep drops entries created before the cutoff and reports how many were
// removed.
func (s *MemoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	removed := 0
	for _, e := range s.entries {
		if e.CreatedAt.After(cutoff) {
			kept = append(kept, e)
		} else {
			removed++
		}
	}
	s.entries = kept
	return removed, nil
}

// Len reports the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
