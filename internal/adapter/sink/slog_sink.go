// Package sink emits per-request events for the observability layer.
package sink

import (
	"context"
	"io"
	"log/slog"

	"steward-core/internal/domain/entity"
)

// SlogSink writes one JSON line per routed request. Fire-and-forget: Emit
// never reports errors back into the request path.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink writes JSON events to w.
func NewSlogSink(w io.Writer) *SlogSink {
	return &SlogSink{logger: slog.New(slog.NewJSONHandler(w, nil))}
}

// Emit implements repository.EventSink.
func (s *SlogSink) Emit(ctx context.Context, ev entity.RequestEvent) {
	attrs := []slog.Attr{
		slog.String("request_id", ev.RequestID),
		slog.String("provider_used", ev.ProviderUsed),
		slog.String("model_used", ev.ModelUsed),
		slog.Bool("cache_hit", ev.CacheHit),
		slog.Bool("fallback_used", ev.FallbackUsed),
		slog.Bool("validation_passed", ev.ValidationPassed),
		slog.Int64("duration_ms", ev.Duration.Milliseconds()),
	}
	if ev.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", ev.SessionID))
	}
	if len(ev.ViolatedRules) > 0 {
		attrs = append(attrs, slog.Any("violated_rules", ev.ViolatedRules))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("error", ev.Error))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "request", attrs...)
}
