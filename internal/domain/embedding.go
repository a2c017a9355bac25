package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the
// decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
	// Degraded marks a vector produced by the deterministic local fallback.
	// Lower quality than a real semantic embedding; must stay visible in
	// telemetry, never hidden.
	Degraded bool
}

// Generator produces free text from a prompt. Used by the moderation scorer;
// fails with ErrProviderUnavailable-wrapped errors on quota/auth/network issues.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Neighbor is a single nearest-neighbor hit from a VectorIndex query.
type Neighbor struct {
	ID string
	// Distance is the cosine distance in [0,2]; lower is closer.
	Distance float64
	Metadata map[string]string
}

// VectorIndex stores (id, vector, metadata) tuples and answers nearest-neighbor
// queries. Implementations must tolerate an empty index (empty result, no error)
// and treat Upsert as idempotent per id.
type VectorIndex interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	Query(ctx context.Context, vector []float32, k int) ([]Neighbor, error)
}
