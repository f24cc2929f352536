package client

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder is a deterministic, offline embedding fallback based on
// signed feature hashing of word tokens. It keeps the gateway (and its
// semantic cache) functional when no cloud embedding model is configured;
// identical normalized texts always embed to the same vector.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder builds an embedder with the given dimensionality.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// CreateEmbedding hashes each token into a bucket with a ±1 sign and
// L2-normalizes the result.
func (e *HashEmbedder) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dim)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dim))
		sign := float32(1)
		if (sum>>32)&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
