package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"steward-core/internal/config"
	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
	"steward-core/internal/registry"
)

// RoutingPolicy names the default target and the single fallback hop.
type RoutingPolicy struct {
	DefaultProvider  string
	DefaultModel     string
	FallbackEnabled  bool
	FallbackProvider string
	FallbackModel    string
}

// RouterParams bundles the router's collaborators.
type RouterParams struct {
	Config    *config.Store
	Registry  *registry.Registry
	Cache     *SemanticCache
	Embedder  repository.Embedder
	Validator *Validator
	Adapters  map[string]repository.TextProvider
	Sink      repository.EventSink
	Policy    RoutingPolicy
	Timeout   time.Duration
	Params    entity.GenerationParams
}

// Router drives one request through the pipeline: resolve configuration,
// check the semantic cache, pick a provider, dispatch, validate, store.
// A provider-side failure triggers exactly one fallback hop; the failed
// provider is marked unavailable first so later requests skip it until a
// probe brings it back.
type Router struct {
	cfg       *config.Store
	registry  *registry.Registry
	cache     *SemanticCache
	embedder  repository.Embedder
	validator *Validator
	adapters  map[string]repository.TextProvider
	sink      repository.EventSink
	policy    RoutingPolicy
	timeout   time.Duration
	params    entity.GenerationParams
	dispatch  dispatcher
	now       func() time.Time
}

// NewRouter wires the pipeline together.
func NewRouter(p RouterParams) *Router {
	if p.Timeout <= 0 {
		p.Timeout = 25 * time.Second
	}
	return &Router{
		cfg:       p.Config,
		registry:  p.Registry,
		cache:     p.Cache,
		embedder:  p.Embedder,
		validator: p.Validator,
		adapters:  p.Adapters,
		sink:      p.Sink,
		policy:    p.Policy,
		timeout:   p.Timeout,
		params:    p.Params,
		dispatch:  newDispatcher(),
		now:       time.Now,
	}
}

type target struct {
	providerID string
	modelID    string
}

// Route processes one chat request end to end. The caller always gets a
// response object unless no provider is available at all (or the request
// itself is invalid / cancelled).
func (r *Router) Route(ctx context.Context, req entity.ChatRequest) (*entity.ChatResponse, error) {
	started := r.now()
	requestID := uuid.NewString()

	if NormalizeMessage(req.Message) == "" {
		return nil, entity.ErrEmptyMessage
	}

	primary, err := r.selectPrimary(req)
	if err != nil {
		r.emit(ctx, requestID, req, entity.ChatResponse{}, started, err)
		return nil, err
	}

	// The fingerprint and embedding are keyed to the primary target so a
	// fallback response is still cached under the model that produced it.
	fingerprint := Fingerprint(req.Message, primary.modelID)
	embedding := r.embed(ctx, req.Message)

	if hit, err := r.cache.Lookup(ctx, fingerprint, embedding, primary.providerID, primary.modelID); err != nil {
		log.Printf("[ROUTER] cache lookup failed, continuing without cache: %v", err)
	} else if hit != nil {
		resp := entity.ChatResponse{
			Text:         hit.Entry.Response,
			ProviderUsed: hit.Entry.ProviderID,
			ModelUsed:    hit.Entry.ModelID,
			CacheHit:     true,
			Validation:   entity.ValidationReport{Passed: true},
		}
		r.emit(ctx, requestID, req, resp, started, nil)
		return &resp, nil
	}

	text, used, fallbackUsed, err := r.dispatchWithFallback(ctx, primary, req.Message)
	if err != nil {
		r.emit(ctx, requestID, req, entity.ChatResponse{}, started, err)
		return nil, err
	}

	model, _, lookupErr := r.registry.LookupModel(used.modelID)
	if lookupErr != nil {
		model = entity.ModelDescriptor{ID: used.modelID, ProviderID: used.providerID}
	}

	verdict := r.validator.Validate(req, text, model, embedding)
	resp := entity.ChatResponse{
		Text:         text,
		ProviderUsed: used.providerID,
		ModelUsed:    used.modelID,
		Validation: entity.ValidationReport{
			Passed:        verdict.Passed,
			ViolatedRules: verdict.Violated,
		},
	}
	if !verdict.Passed {
		log.Printf("[VALIDATOR] response rejected (%s): %s", used.modelID, verdict.Explanation)
		resp.Validation.CorrectedText = verdict.Corrected
		if verdict.Corrected != "" {
			resp.Text = verdict.Corrected
		}
	}

	// Never cache on behalf of a caller that has already walked away.
	if ctx.Err() == nil {
		entry := entity.CacheEntry{
			Fingerprint: fingerprint,
			Embedding:   embedding,
			Response:    resp.Text,
			ProviderID:  used.providerID,
			ModelID:     used.modelID,
		}
		if err := r.cache.Store(ctx, entry); err != nil {
			log.Printf("[ROUTER] cache store failed: %v", err)
		}
	}

	r.emitWithFallback(ctx, requestID, req, resp, started, nil, fallbackUsed)
	return &resp, nil
}

// selectPrimary applies the selection order: explicit override with
// a live owner, then the configured default, then the fallback target.
func (r *Router) selectPrimary(req entity.ChatRequest) (target, error) {
	if req.ModelOverride != "" {
		md, providerID, err := r.registry.LookupModel(req.ModelOverride)
		if err != nil {
			return target{}, err
		}
		if st, err := r.registry.Status(providerID); err == nil && st == entity.StatusAvailable {
			return target{providerID: providerID, modelID: md.ID}, nil
		}
		// Owner is down; fall through to the configured default.
	}

	if st, err := r.registry.Status(r.policy.DefaultProvider); err == nil && st == entity.StatusAvailable {
		return target{providerID: r.policy.DefaultProvider, modelID: r.policy.DefaultModel}, nil
	}

	if fb, ok := r.selectFallback(""); ok {
		return fb, nil
	}
	return target{}, entity.ErrNoProviderAvailable
}

// selectFallback returns the fallback target unless it is disabled, down,
// or the provider that just failed.
func (r *Router) selectFallback(exclude string) (target, bool) {
	if !r.policy.FallbackEnabled || r.policy.FallbackProvider == exclude {
		return target{}, false
	}
	if st, err := r.registry.Status(r.policy.FallbackProvider); err != nil || st != entity.StatusAvailable {
		return target{}, false
	}
	return target{providerID: r.policy.FallbackProvider, modelID: r.policy.FallbackModel}, true
}

// dispatchWithFallback is the DISPATCHING / SELECTING_FALLBACK portion of
// the state machine: at most two hops, and the failed primary is marked
// unavailable before the fallback attempt.
func (r *Router) dispatchWithFallback(ctx context.Context, primary target, prompt string) (string, target, bool, error) {
	cand := primary
	for hop := 0; ; hop++ {
		text, err := r.dispatchOne(ctx, cand, prompt)
		if err == nil {
			return text, cand, hop > 0, nil
		}

		// A caller-side cancellation is not a provider failure: no liveness
		// change, no fallback.
		if ctx.Err() != nil {
			return "", target{}, false, ctx.Err()
		}

		log.Printf("[ROUTER] provider %s failed, marking unavailable: %v", cand.providerID, err)
		r.registry.MarkUnavailable(cand.providerID)

		if hop > 0 {
			return "", target{}, false, fmt.Errorf("primary and fallback both failed: %w", err)
		}
		fb, ok := r.selectFallback(cand.providerID)
		if !ok {
			return "", target{}, false, err
		}
		cand = fb
	}
}

func (r *Router) dispatchOne(ctx context.Context, cand target, prompt string) (string, error) {
	adapter, ok := r.adapters[cand.providerID]
	if !ok {
		return "", entity.NewProviderError(cand.providerID, entity.ProviderErrProtocol, false,
			fmt.Errorf("no adapter wired for provider"))
	}

	dctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.dispatch.generate(dctx, adapter, cand.modelID, prompt, r.params)
}

// embed computes the request embedding under the request timeout. An
// embedder outage degrades to exact-fingerprint caching rather than
// failing the request.
func (r *Router) embed(ctx context.Context, message string) []float32 {
	ectx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	vec, err := r.embedder.CreateEmbedding(ectx, NormalizeMessage(message))
	if err != nil {
		log.Printf("[ROUTER] embedding failed, degrading to exact-match caching: %v", err)
		return nil
	}
	return vec
}

func (r *Router) emit(ctx context.Context, requestID string, req entity.ChatRequest, resp entity.ChatResponse, started time.Time, err error) {
	r.emitWithFallback(ctx, requestID, req, resp, started, err, false)
}

func (r *Router) emitWithFallback(ctx context.Context, requestID string, req entity.ChatRequest, resp entity.ChatResponse, started time.Time, err error, fallbackUsed bool) {
	if r.sink == nil {
		return
	}
	ev := entity.RequestEvent{
		RequestID:        requestID,
		SessionID:        req.SessionID,
		ProviderUsed:     resp.ProviderUsed,
		ModelUsed:        resp.ModelUsed,
		CacheHit:         resp.CacheHit,
		FallbackUsed:     fallbackUsed,
		ValidationPassed: resp.Validation.Passed,
		ViolatedRules:    resp.Validation.ViolatedRules,
		Duration:         r.now().Sub(started),
		Timestamp:        started,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	r.sink.Emit(ctx, ev)
}
