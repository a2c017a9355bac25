package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/repository/vecindex"
	"github.com/kailas-cloud/eventscope/internal/usecase/embedding"
)

func testEvent(id string) domain.Event {
	return domain.Event{
		ID:          id,
		Title:       "Jazz Night",
		Description: "Live jazz downtown.",
		Category:    domain.CategoryMusic,
		StartTime:   time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		Status:      domain.StatusApproved,
	}
}

func newTestMaintainer(index domain.VectorIndex) *Maintainer {
	cfg := Config{MaxRetries: 2, BaseBackoff: time.Millisecond}
	return NewMaintainer(index, embedding.NewLocalEmbedder(16), cfg, zap.NewNop())
}

func TestMaintainer_AddIsIdempotent(t *testing.T) {
	idx := vecindex.NewMemoryIndex(16)
	m := newTestMaintainer(idx)
	defer m.Close()

	ctx := context.Background()
	ev := testEvent("ev1")
	m.Add(ctx, ev)
	m.Add(ctx, ev)
	m.Update(ctx, ev)

	if got := idx.Len(); got != 1 {
		t.Errorf("expected exactly one entry after repeated adds, got %d", got)
	}
}

func TestMaintainer_RemoveAbsentIsNoop(t *testing.T) {
	idx := vecindex.NewMemoryIndex(16)
	m := newTestMaintainer(idx)
	defer m.Close()

	m.Remove(context.Background(), "never-indexed")
	if got := idx.Len(); got != 0 {
		t.Errorf("expected empty index, got %d entries", got)
	}
}

func TestMaintainer_AddThenRemove(t *testing.T) {
	idx := vecindex.NewMemoryIndex(16)
	m := newTestMaintainer(idx)
	defer m.Close()

	ctx := context.Background()
	m.Add(ctx, testEvent("ev1"))
	m.Remove(ctx, "ev1")

	if got := idx.Len(); got != 0 {
		t.Errorf("expected empty index after remove, got %d entries", got)
	}
}

// flakyIndex fails the first n Upsert calls, then delegates.
type flakyIndex struct {
	domain.VectorIndex

	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyIndex) Upsert(ctx context.Context, id string, vec []float32, meta map[string]string) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("transient write failure")
	}
	return f.VectorIndex.Upsert(ctx, id, vec, meta)
}

func TestMaintainer_RetriesFailedUpsert(t *testing.T) {
	inner := vecindex.NewMemoryIndex(16)
	idx := &flakyIndex{VectorIndex: inner, failures: 1}
	m := newTestMaintainer(idx)

	m.Add(context.Background(), testEvent("ev1"))

	deadline := time.Now().Add(2 * time.Second)
	for inner.Len() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("retry never landed the upsert")
		}
		time.Sleep(time.Millisecond)
	}
	m.Close()
}

func TestMaintainer_GivesUpAfterMaxRetries(t *testing.T) {
	inner := vecindex.NewMemoryIndex(16)
	idx := &flakyIndex{VectorIndex: inner, failures: 100}
	m := newTestMaintainer(idx)

	m.Add(context.Background(), testEvent("ev1"))

	// initial attempt + 2 retries
	deadline := time.Now().Add(2 * time.Second)
	for {
		idx.mu.Lock()
		calls := idx.calls
		idx.mu.Unlock()
		if calls >= 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 attempts, got %d", calls)
		}
		time.Sleep(time.Millisecond)
	}
	m.Close()

	if got := inner.Len(); got != 0 {
		t.Errorf("expected no entry after exhausted retries, got %d", got)
	}
}

func TestMaintainer_ConcurrentSameID(t *testing.T) {
	idx := vecindex.NewMemoryIndex(16)
	m := newTestMaintainer(idx)
	defer m.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Add(ctx, testEvent("ev1"))
		}()
	}
	wg.Wait()

	if got := idx.Len(); got != 1 {
		t.Errorf("expected one entry after concurrent adds, got %d", got)
	}
}
