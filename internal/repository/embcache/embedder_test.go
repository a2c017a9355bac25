package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/db"
	"github.com/kailas-cloud/eventscope/internal/domain"
)

type mapStore struct {
	data map[string][]byte
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]byte)}
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte) error {
	m.data[key] = value
	return nil
}

type countingEmbedder struct {
	calls  int
	result domain.EmbeddingResult
	err    error
}

func (c *countingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	c.calls++
	return c.result, c.err
}

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	inner := &countingEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 7,
	}}
	cache := New(inner, newMapStore(), nil, zap.NewNop())

	first, err := cache.Embed(context.Background(), "jazz night")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Embed(context.Background(), "jazz night")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
	if len(second.Embedding) != len(first.Embedding) {
		t.Fatalf("cached vector length %d != original %d", len(second.Embedding), len(first.Embedding))
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Errorf("vector[%d]: cached %v != original %v", i, second.Embedding[i], first.Embedding[i])
		}
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit reported %d tokens, want 0", second.TotalTokens)
	}
}

func TestCachedEmbedder_DegradedNotCached(t *testing.T) {
	inner := &countingEmbedder{result: domain.EmbeddingResult{
		Embedding: []float32{0.5, 0.5},
		Degraded:  true,
	}}
	store := newMapStore()
	cache := New(inner, store, nil, zap.NewNop())

	if _, err := cache.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.data) != 0 {
		t.Errorf("degraded vector was cached; store has %d entries", len(store.data))
	}
	if _, err := cache.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 (no caching of degraded vectors)", inner.calls)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0, -1.5, 3.25, 1e-7}
	got, err := bytesToVector(vectorToCacheBytes(vec))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vec[%d] = %v, want %v", i, got[i], vec[i])
		}
	}
}

func TestBytesToVector_Truncated(t *testing.T) {
	if _, err := bytesToVector([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for data not a multiple of 4 bytes")
	}
}
