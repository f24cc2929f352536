package entity

import "time"

// CacheEntry is an immutable record of one generated response. Entries are
// only ever appended and evicted, never mutated in place.
type CacheEntry struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Embedding   []float32 `json:"-"`
	Response    string    `json:"response"`
	ProviderID  string    `json:"provider_id"`
	ModelID     string    `json:"model_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheQuery carries everything a vector store needs to answer a lookup:
// the query embedding, the scope filter, and the thresholds already
// resolved from the configuration hierarchy.
type CacheQuery struct {
	Fingerprint   string
	Embedding     []float32
	ProviderID    string
	ModelID       string
	Threshold     float64
	OldestAllowed time.Time
}

// CacheHit is a successful lookup with its similarity score.
type CacheHit struct {
	Entry      CacheEntry
	Similarity float64
}
