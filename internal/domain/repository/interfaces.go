package repository

import (
	"context"
	"time"

	"steward-core/internal/domain/entity"
)

// TextProvider is the uniform "generate" capability every backend adapter
// implements. Failures must surface as *entity.ProviderError.
type TextProvider interface {
	Generate(ctx context.Context, modelID, prompt string, params entity.GenerationParams) (string, error)
}

// Embedder turns text into the vector used for cache fingerprinting and
// reference-corpus similarity.
type Embedder interface {
	CreateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the storage backend of the semantic cache. Search answers
// a fully resolved query (thresholds already merged from configuration);
// Save must be atomic from a concurrent reader's perspective.
type VectorStore interface {
	Search(ctx context.Context, q entity.CacheQuery) (*entity.CacheHit, error)
	Save(ctx context.Context, entry entity.CacheEntry) error
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// CorpusReader exposes the read-only reference corpus produced by the
// upstream extraction pipeline.
type CorpusReader interface {
	Load(ctx context.Context) ([]entity.ReferenceExample, error)
}

// TokenLimiter enforces a per-session token budget.
type TokenLimiter interface {
	CheckLimit(ctx context.Context, sessionID string) (bool, error)
	Increment(ctx context.Context, sessionID string, tokens int) error
}

// EventSink receives one structured event per routed request.
type EventSink interface {
	Emit(ctx context.Context, ev entity.RequestEvent)
}
