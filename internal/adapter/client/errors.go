package client

import (
	"context"
	"errors"
	"net"
	"strings"

	"steward-core/internal/domain/entity"
)

// classifyErr maps a transport-level failure to a ProviderError so the
// router can decide on the fallback hop without knowing the backend.
func classifyErr(provider string, err error) error {
	if err == nil {
		return nil
	}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return entity.NewProviderError(provider, entity.ProviderErrTimeout, true, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "api key") ||
		strings.Contains(msg, "permission"):
		return entity.NewProviderError(provider, entity.ProviderErrAuth, false, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "500") ||
		strings.Contains(msg, "502") || strings.Contains(msg, "503") ||
		strings.Contains(msg, "overloaded") || strings.Contains(msg, "deadline"):
		return entity.NewProviderError(provider, entity.ProviderErrProtocol, true, err)
	default:
		return entity.NewProviderError(provider, entity.ProviderErrProtocol, false, err)
	}
}

// classifyStatus maps an HTTP status code from a backend to a ProviderError.
func classifyStatus(provider string, status int, err error) error {
	switch {
	case status == 401 || status == 403:
		return entity.NewProviderError(provider, entity.ProviderErrAuth, false, err)
	case status == 408 || status == 504:
		return entity.NewProviderError(provider, entity.ProviderErrTimeout, true, err)
	case status == 429 || status >= 500:
		return entity.NewProviderError(provider, entity.ProviderErrProtocol, true, err)
	default:
		return entity.NewProviderError(provider, entity.ProviderErrProtocol, false, err)
	}
}
