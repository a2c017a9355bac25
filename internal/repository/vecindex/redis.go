// Package vecindex provides domain.VectorIndex implementations: a Redis
// FT.SEARCH-backed index for deployments with Redis 8+, and an in-memory
// brute-force index for tests and single-node setups.
package vecindex

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/eventscope/internal/db"
	"github.com/kailas-cloud/eventscope/internal/domain"
)

const (
	indexName = "eventscope:events"
	keyPrefix = "eventscope:vec:"
)

// metaFields are the hash fields returned alongside KNN hits.
var metaFields = []string{"__vector_score", "category", "status"}

// Compile-time check.
var _ domain.VectorIndex = (*RedisIndex)(nil)

// RedisIndex stores event vectors as Redis hashes under an FT HNSW index.
type RedisIndex struct {
	store db.Store
	dim   int
}

// NewRedisIndex creates the index wrapper. Call EnsureIndex before use.
func NewRedisIndex(store db.Store, dim int) *RedisIndex {
	return &RedisIndex{store: store, dim: dim}
}

// EnsureIndex creates the FT index if it does not exist and verifies that an
// existing index was built for the same vector dimensionality. A mismatch is
// a configuration error and must abort startup.
func (r *RedisIndex) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return r.verifyDimension(ctx)
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "category", Type: db.IndexFieldTag},
			{Name: "status", Type: db.IndexFieldTag},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorAlgo:     db.VectorHNSW,
				VectorDim:      r.dim,
				VectorDistance: db.DistanceCosine,
			},
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// verifyDimension samples one stored vector and compares its length against
// the configured dimensionality.
func (r *RedisIndex) verifyDimension(ctx context.Context) error {
	probe := make([]float32, r.dim)
	probe[0] = 1
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       probe,
		K:            1,
		ReturnFields: []string{"vector"},
		RawScores:    true,
	})
	if err != nil {
		// Redis rejects a KNN query whose blob length disagrees with the
		// index DIM; that is exactly the mismatch being probed for.
		if strings.Contains(err.Error(), "size") || strings.Contains(err.Error(), "dim") {
			return fmt.Errorf("index %s: %w", indexName, domain.ErrVectorDimMismatch)
		}
		return fmt.Errorf("probe index: %w", err)
	}
	for _, e := range res.Entries {
		if raw, ok := e.Fields["vector"]; ok && len(raw)%4 == 0 && len(raw)/4 != r.dim {
			return fmt.Errorf("index %s holds %d-dim vectors, embedder produces %d: %w",
				indexName, len(raw)/4, r.dim, domain.ErrVectorDimMismatch)
		}
	}
	return nil
}

// Upsert writes the vector hash. Overwrites any existing entry for the id.
func (r *RedisIndex) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != r.dim {
		return fmt.Errorf("vector for %s has %d dims, index expects %d: %w",
			id, len(vector), r.dim, domain.ErrVectorDimMismatch)
	}

	fields := map[string]string{"vector": vectorBlob(vector)}
	for k, v := range metadata {
		fields[k] = v
	}
	if err := r.store.HSet(ctx, keyPrefix+id, fields); err != nil {
		return fmt.Errorf("upsert %s: %w", id, err)
	}
	return nil
}

// Delete removes the vector hash. Deleting an absent id is a no-op.
func (r *RedisIndex) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

// Query returns up to k nearest neighbors by cosine distance.
func (r *RedisIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Vector:       vector,
		K:            k,
		ReturnFields: metaFields,
		RawScores:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}

	neighbors := make([]domain.Neighbor, 0, len(res.Entries))
	for _, e := range res.Entries {
		neighbors = append(neighbors, domain.Neighbor{
			ID:       strings.TrimPrefix(e.Key, keyPrefix),
			Distance: e.Score,
			Metadata: e.Fields,
		})
	}
	return neighbors, nil
}

func vectorBlob(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
