package usecase

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
)

// dispatcher executes a single provider call with bounded in-provider
// retries. Only retryable protocol errors are retried here; timeouts go
// straight back to the router, which owns the fallback hop.
type dispatcher struct {
	maxAttempts int
	baseDelay   time.Duration
}

func newDispatcher() dispatcher {
	return dispatcher{
		maxAttempts: 2,
		baseDelay:   500 * time.Millisecond,
	}
}

func (d dispatcher) generate(ctx context.Context, p repository.TextProvider, modelID, prompt string, params entity.GenerationParams) (string, error) {
	var lastErr error
	for attempt := 0; attempt < d.maxAttempts; attempt++ {
		text, err := p.Generate(ctx, modelID, prompt, params)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var pe *entity.ProviderError
		if !errors.As(err, &pe) || !pe.Retryable || pe.Kind == entity.ProviderErrTimeout {
			break
		}
		if attempt == d.maxAttempts-1 {
			break
		}

		select {
		case <-time.After(d.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", lastErr
}

func (d dispatcher) backoff(attempt int) time.Duration {
	backoff := float64(d.baseDelay) * float64(int(1)<<attempt)
	jitter := (rand.Float64() * 0.2) * backoff // 20% jitter
	return time.Duration(backoff + jitter)
}
