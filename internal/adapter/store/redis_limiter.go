package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// SessionLimiter caps generation spend per conversation session with a
// Redis counter, so limits hold across gateway restarts and replicas.
type SessionLimiter struct {
	client *redis.Client
	limit  int // max tokens per session
}

// NewSessionLimiter builds a limiter over an existing Redis client.
func NewSessionLimiter(client *redis.Client, limit int) *SessionLimiter {
	return &SessionLimiter{
		client: client,
		limit:  limit,
	}
}

// CheckLimit reports whether the session may spend more tokens. Sessions
// with no recorded usage are always allowed.
func (r *SessionLimiter) CheckLimit(ctx context.Context, sessionID string) (bool, error) {
	val, err := r.client.Get(ctx, "usage:session:"+sessionID).Result()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	usage, _ := strconv.Atoi(val)
	return usage < r.limit, nil
}

// Increment records spent tokens against the session.
func (r *SessionLimiter) Increment(ctx context.Context, sessionID string, tokens int) error {
	return r.client.IncrBy(ctx, "usage:session:"+sessionID, int64(tokens)).Err()
}
