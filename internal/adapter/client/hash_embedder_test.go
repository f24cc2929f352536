package client

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"steward-core/internal/domain/entity"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.CreateEmbedding(ctx, "my ac stopped working")
	require.NoError(t, err)
	b, err := e.CreateEmbedding(ctx, "my ac stopped working")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashEmbedderUnitNorm(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, err := e.CreateEmbedding(context.Background(), "the rent is due on the first of the month")
	require.NoError(t, err)

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashEmbedderSimilarTextsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(128)
	ctx := context.Background()

	ac, err := e.CreateEmbedding(ctx, "my ac stopped working and the unit is hot")
	require.NoError(t, err)
	acAgain, err := e.CreateEmbedding(ctx, "the ac unit stopped working")
	require.NoError(t, err)
	unrelated, err := e.CreateEmbedding(ctx, "can i get a copy of my lease agreement")
	require.NoError(t, err)

	related := entity.Cosine(ac, acAgain)
	distant := entity.Cosine(ac, unrelated)
	assert.Greater(t, related, distant)
}

func TestHashEmbedderEmptyText(t *testing.T) {
	e := NewHashEmbedder(32)
	vec, err := e.CreateEmbedding(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, vec, 32)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestHashEmbedderHonorsCancellation(t *testing.T) {
	e := NewHashEmbedder(32)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.CreateEmbedding(ctx, "anything")
	assert.ErrorIs(t, err, context.Canceled)
}
