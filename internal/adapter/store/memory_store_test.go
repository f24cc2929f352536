package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward-core/internal/domain/entity"
)

func entryAt(created time.Time, response string, embedding []float32) entity.CacheEntry {
	return entity.CacheEntry{
		ID:         response,
		Response:   response,
		Embedding:  embedding,
		ProviderID: "gemini",
		ModelID:    "gemini-2.5-flash",
		CreatedAt:  created,
	}
}

func query(embedding []float32, threshold float64, oldest time.Time) entity.CacheQuery {
	return entity.CacheQuery{
		Embedding:     embedding,
		ProviderID:    "gemini",
		ModelID:       "gemini-2.5-flash",
		Threshold:     threshold,
		OldestAllowed: oldest,
	}
}

func TestSearchScopedByProviderAndModel(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	vec := []float32{1, 0, 0}
	require.NoError(t, s.Save(ctx, entryAt(now, "mine", vec)))

	other := entryAt(now, "other-model", vec)
	other.ModelID = "llama3.1"
	require.NoError(t, s.Save(ctx, other))

	hit, err := s.Search(ctx, query(vec, 0.8, now.Add(-time.Hour)))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "mine", hit.Entry.Response)
	assert.InDelta(t, 1.0, hit.Similarity, 1e-9)
}

func TestSearchRespectsThreshold(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Save(ctx, entryAt(now, "stored", []float32{1, 0, 0})))

	// Orthogonal vector: similarity 0.
	hit, err := s.Search(ctx, query([]float32{0, 1, 0}, 0.5, now.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Nil(t, hit)

	// Similar vector above threshold.
	hit, err = s.Search(ctx, query([]float32{0.9, 0.1, 0}, 0.5, now.Add(-time.Hour)))
	require.NoError(t, err)
	assert.NotNil(t, hit)
}

func TestSearchExcludesExpiredEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	vec := []float32{1, 0, 0}

	require.NoError(t, s.Save(ctx, entryAt(now.Add(-2*time.Hour), "old", vec)))

	hit, err := s.Search(ctx, query(vec, 0.8, now.Add(-time.Hour)))
	require.NoError(t, err)
	assert.Nil(t, hit, "entries at or past the age cutoff must not be returned")
}

func TestSearchTieBreakPrefersNewest(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	vec := []float32{1, 0, 0}

	require.NoError(t, s.Save(ctx, entryAt(now.Add(-10*time.Minute), "older", vec)))
	require.NoError(t, s.Save(ctx, entryAt(now.Add(-1*time.Minute), "newer", vec)))

	hit, err := s.Search(ctx, query(vec, 0.8, now.Add(-time.Hour)))
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "newer", hit.Entry.Response)
}

func TestSearchExactFingerprintIsPerfectMatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	e := entryAt(now, "stored", []float32{1, 0, 0})
	e.Fingerprint = "abc"
	require.NoError(t, s.Save(ctx, e))

	q := query(nil, 0.9, now.Add(-time.Hour))
	q.Fingerprint = "abc"
	hit, err := s.Search(ctx, q)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, 1.0, hit.Similarity)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	vec := []float32{1, 0, 0}

	require.NoError(t, s.Save(ctx, entryAt(now.Add(-3*time.Hour), "old", vec)))
	require.NoError(t, s.Save(ctx, entryAt(now, "fresh", vec)))

	removed, err := s.Sweep(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
}

func TestConcurrentSaveAndSearch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	vec := []float32{1, 0, 0}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = s.Save(ctx, entryAt(now, "resp", vec))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				hit, err := s.Search(ctx, query(vec, 0.8, now.Add(-time.Hour)))
				assert.NoError(t, err)
				if hit != nil {
					// Never a half-written entry.
					assert.Equal(t, "resp", hit.Entry.Response)
				}
			}
		}()
	}
	wg.Wait()
}
