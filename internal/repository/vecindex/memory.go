package vecindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// Compile-time check.
var _ domain.VectorIndex = (*MemoryIndex)(nil)

type memoryEntry struct {
	vector   []float32
	metadata map[string]string
}

// MemoryIndex is a brute-force in-memory vector index. Safe for concurrent
// use. Suitable for tests and single-node deployments without Redis.
type MemoryIndex struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]memoryEntry
}

// NewMemoryIndex creates an empty in-memory index for dim-sized vectors.
func NewMemoryIndex(dim int) *MemoryIndex {
	return &MemoryIndex{dim: dim, entries: make(map[string]memoryEntry)}
}

// Upsert stores or overwrites the vector for id.
func (m *MemoryIndex) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != m.dim {
		return fmt.Errorf("vector for %s has %d dims, index expects %d: %w",
			id, len(vector), m.dim, domain.ErrVectorDimMismatch)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	var meta map[string]string
	if metadata != nil {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	m.mu.Lock()
	m.entries[id] = memoryEntry{vector: vec, metadata: meta}
	m.mu.Unlock()
	return nil
}

// Delete removes the vector for id. Absent ids are a no-op.
func (m *MemoryIndex) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

// Query returns up to k nearest neighbors by cosine distance. An empty index
// yields an empty result.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	neighbors := make([]domain.Neighbor, 0, len(m.entries))
	for id, e := range m.entries {
		neighbors = append(neighbors, domain.Neighbor{
			ID:       id,
			Distance: cosineDistance(vector, e.vector),
			Metadata: e.metadata,
		})
	}
	m.mu.RUnlock()

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Distance != neighbors[j].Distance {
			return neighbors[i].Distance < neighbors[j].Distance
		}
		return neighbors[i].ID < neighbors[j].ID
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Len returns the number of stored vectors.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// cosineDistance returns 1 - cosine similarity, in [0,2]. Zero-magnitude
// vectors are treated as maximally distant rather than dividing by zero.
func cosineDistance(a, b []float32) float64 {
	var dot, magA, magB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	for i := n; i < len(a); i++ {
		magA += float64(a[i]) * float64(a[i])
	}
	for i := n; i < len(b); i++ {
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(magA)*math.Sqrt(magB))
}
