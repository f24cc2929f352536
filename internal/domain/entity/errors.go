package entity

import (
	"errors"
	"fmt"
)

// Standard domain errors
var (
	ErrNoProviderAvailable = errors.New("no provider available for this request")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded: session token budget spent")
	ErrEmptyMessage        = errors.New("message must not be empty")
)

// ProviderErrorKind classifies a backend failure.
type ProviderErrorKind string

const (
	ProviderErrTimeout  ProviderErrorKind = "timeout"
	ProviderErrProtocol ProviderErrorKind = "protocol"
	ProviderErrAuth     ProviderErrorKind = "auth"
)

// ProviderError wraps any failure raised by a provider adapter. Retryable
// controls whether the router may attempt the fallback hop.
type ProviderError struct {
	Provider  string
	Kind      ProviderErrorKind
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a classified adapter failure.
func NewProviderError(provider string, kind ProviderErrorKind, retryable bool, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Retryable: retryable, Err: err}
}
