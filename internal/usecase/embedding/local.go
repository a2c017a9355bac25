package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// LocalEmbedder produces deterministic pseudo-random embeddings without any
// external provider. The vector is seeded from a hash of the input text, so
// identical text always yields an identical vector and nearby-duplicate
// detection keeps working at reduced quality while the provider is down.
// Results are marked Degraded so callers never cache or trust them as
// provider-grade vectors.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder creates a LocalEmbedder emitting vectors of the given
// dimensionality.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	return &LocalEmbedder{dimensions: dimensions}
}

// Embed generates a unit-length vector seeded from the text hash.
func (l *LocalEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	vec := make([]float32, l.dimensions)
	var norm float64
	for i := range vec {
		v := rng.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}

	return domain.EmbeddingResult{Embedding: vec, Degraded: true}, nil
}
