package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward-core/internal/adapter/client"
	"steward-core/internal/adapter/store"
	"steward-core/internal/config"
	"steward-core/internal/domain/entity"
	"steward-core/internal/domain/repository"
	"steward-core/internal/registry"
)

const okResponse = "Thanks for reaching out — I'll send maintenance over today to take a look and keep you posted."

// fakeAdapter scripts a provider's behaviour and counts invocations.
type fakeAdapter struct {
	mu       sync.Mutex
	calls    int
	response string
	err      error
}

func (f *fakeAdapter) Generate(ctx context.Context, modelID, prompt string, params entity.GenerationParams) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", entity.NewProviderError("fake", entity.ProviderErrTimeout, false, err)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memorySink captures emitted events.
type memorySink struct {
	mu     sync.Mutex
	events []entity.RequestEvent
}

func (s *memorySink) Emit(ctx context.Context, ev entity.RequestEvent) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *memorySink) last(t *testing.T) entity.RequestEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.events)
	return s.events[len(s.events)-1]
}

type routerFixture struct {
	router   *Router
	registry *registry.Registry
	cfg      *config.Store
	mem      *store.MemoryStore
	primary  *fakeAdapter
	fallback *fakeAdapter
	sink     *memorySink
}

func newRouterFixture(t *testing.T, personaPrimary bool) *routerFixture {
	t.Helper()

	reg := registry.New()
	require.NoError(t, reg.Register(entity.ProviderDescriptor{
		ID:   "primary",
		Kind: entity.KindCloudServerless,
		Models: []entity.ModelDescriptor{
			{ID: "primary-model", TargetPersona: personaPrimary},
		},
	}))
	require.NoError(t, reg.Register(entity.ProviderDescriptor{
		ID:   "secondary",
		Kind: entity.KindLocalRuntime,
		Models: []entity.ModelDescriptor{
			{ID: "secondary-model"},
		},
	}))

	cfg := config.NewStore([]string{"primary", "secondary"}, []string{"primary-model", "secondary-model"})
	mem := store.NewMemoryStore()
	cache := NewSemanticCache(mem, cfg)

	embedder := client.NewHashEmbedder(64)
	idx, err := BuildCorpusIndex(context.Background(), DefaultCorpus(), embedder)
	require.NoError(t, err)
	validator := NewValidator(ValidatorConfig{}, idx)

	primary := &fakeAdapter{response: okResponse}
	fallback := &fakeAdapter{response: okResponse}
	sink := &memorySink{}

	router := NewRouter(RouterParams{
		Config:    cfg,
		Registry:  reg,
		Cache:     cache,
		Embedder:  embedder,
		Validator: validator,
		Adapters: map[string]repository.TextProvider{
			"primary":   primary,
			"secondary": fallback,
		},
		Sink: sink,
		Policy: RoutingPolicy{
			DefaultProvider:  "primary",
			DefaultModel:     "primary-model",
			FallbackEnabled:  true,
			FallbackProvider: "secondary",
			FallbackModel:    "secondary-model",
		},
		Timeout: time.Second,
	})

	return &routerFixture{
		router:   router,
		registry: reg,
		cfg:      cfg,
		mem:      mem,
		primary:  primary,
		fallback: fallback,
		sink:     sink,
	}
}

func timeoutErr(provider string) error {
	return entity.NewProviderError(provider, entity.ProviderErrTimeout, true, context.DeadlineExceeded)
}

func TestRouteHappyPath(t *testing.T) {
	fx := newRouterFixture(t, false)

	resp, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.ProviderUsed)
	assert.Equal(t, "primary-model", resp.ModelUsed)
	assert.False(t, resp.CacheHit)
	assert.True(t, resp.Validation.Passed)
	assert.Equal(t, 1, fx.primary.callCount())
	assert.Equal(t, 0, fx.fallback.callCount())
	assert.Equal(t, 1, fx.mem.Len(), "a validated response is cached")
}

func TestRouteFallbackExactlyOnce(t *testing.T) {
	fx := newRouterFixture(t, false)
	fx.primary.err = timeoutErr("primary")

	resp, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.ProviderUsed)
	assert.Equal(t, "secondary-model", resp.ModelUsed)

	// Timeouts are never retried on the same provider and there is no
	// third attempt anywhere.
	assert.Equal(t, 1, fx.primary.callCount())
	assert.Equal(t, 1, fx.fallback.callCount())

	st, _ := fx.registry.Status("primary")
	assert.Equal(t, entity.StatusUnavailable, st, "failed provider is marked before the retry")

	assert.True(t, fx.sink.last(t).FallbackUsed)
}

func TestRouteBothProvidersFail(t *testing.T) {
	fx := newRouterFixture(t, false)
	fx.primary.err = timeoutErr("primary")
	fx.fallback.err = timeoutErr("secondary")

	_, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.Error(t, err)
	assert.Equal(t, 1, fx.primary.callCount())
	assert.Equal(t, 1, fx.fallback.callCount())

	st, _ := fx.registry.Status("secondary")
	assert.Equal(t, entity.StatusUnavailable, st)
}

func TestRouteNoProviderAvailable(t *testing.T) {
	fx := newRouterFixture(t, false)
	fx.registry.MarkUnavailable("primary")
	fx.registry.MarkUnavailable("secondary")

	_, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	assert.ErrorIs(t, err, entity.ErrNoProviderAvailable)
	assert.Equal(t, 0, fx.primary.callCount())
	assert.Equal(t, 0, fx.fallback.callCount())
}

func TestRouteModelOverride(t *testing.T) {
	fx := newRouterFixture(t, false)

	resp, err := fx.router.Route(context.Background(), entity.ChatRequest{
		Message:       "My AC stopped working",
		ModelOverride: "secondary-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.ProviderUsed)
	assert.Equal(t, 0, fx.primary.callCount())
	assert.Equal(t, 1, fx.fallback.callCount())
}

func TestRouteUnknownOverrideIsRejected(t *testing.T) {
	fx := newRouterFixture(t, false)

	_, err := fx.router.Route(context.Background(), entity.ChatRequest{
		Message:       "My AC stopped working",
		ModelOverride: "ghost-model",
	})
	assert.ErrorIs(t, err, registry.ErrUnknownModel)
}

func TestRouteOverrideOwnerDownFallsToDefault(t *testing.T) {
	fx := newRouterFixture(t, false)
	fx.registry.MarkUnavailable("secondary")

	resp, err := fx.router.Route(context.Background(), entity.ChatRequest{
		Message:       "My AC stopped working",
		ModelOverride: "secondary-model",
	})
	require.NoError(t, err)
	assert.Equal(t, "primary", resp.ProviderUsed)
}

func TestRouteCacheHitSkipsProviders(t *testing.T) {
	fx := newRouterFixture(t, false)

	first, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, fx.primary.callCount(), "a cache hit must not invoke any adapter")
	assert.Equal(t, 0, fx.fallback.callCount())
}

func TestRouteCallerCancellation(t *testing.T) {
	fx := newRouterFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.router.Route(ctx, entity.ChatRequest{Message: "My AC stopped working"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	// Cancellation is not a provider failure and never writes a cache entry.
	st, _ := fx.registry.Status("primary")
	assert.Equal(t, entity.StatusAvailable, st)
	assert.Equal(t, 0, fx.mem.Len())
}

func TestRouteValidationFailureSubstitutesCorrection(t *testing.T) {
	fx := newRouterFixture(t, true)
	fx.primary.response = "The AC unit is probably low on refrigerant. Maintenance requests are generally handled in the order they arrive at the office."

	resp, err := fx.router.Route(context.Background(), entity.ChatRequest{Message: "My AC stopped working"})
	require.NoError(t, err)
	assert.False(t, resp.Validation.Passed)
	assert.NotEmpty(t, resp.Validation.ViolatedRules)
	assert.NotEmpty(t, resp.Validation.CorrectedText)
	assert.Equal(t, resp.Validation.CorrectedText, resp.Text, "the corrected response is what the caller reads out")
}
