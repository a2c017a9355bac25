package vecindex

import (
	"context"
	"testing"
)

func TestMemoryIndex_EmptyQuery(t *testing.T) {
	idx := NewMemoryIndex(3)

	got, err := idx.Query(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty index returned %d neighbors, want 0", len(got))
	}
}

func TestMemoryIndex_UpsertIdempotent(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "ev1", []float32{1, 0}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Upsert(ctx, "ev1", []float32{0, 1}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.Len() != 1 {
		t.Fatalf("index has %d entries after double upsert, want 1", idx.Len())
	}

	// Second upsert must have replaced the vector, not duplicated it.
	got, err := idx.Query(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ev1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if got[0].Distance > 1e-6 {
		t.Errorf("distance to replaced vector = %v, want ~0", got[0].Distance)
	}
}

func TestMemoryIndex_DimMismatch(t *testing.T) {
	idx := NewMemoryIndex(3)
	err := idx.Upsert(context.Background(), "ev1", []float32{1, 0}, nil)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMemoryIndex_Ordering(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	vectors := map[string][]float32{
		"close":   {1, 0.01},
		"mid":     {1, 1},
		"far":     {-1, 0},
		"closest": {1, 0},
	}
	for id, v := range vectors {
		if err := idx.Upsert(ctx, id, v, map[string]string{"id": id}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	got, err := idx.Query(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d neighbors, want 3", len(got))
	}
	if got[0].ID != "closest" || got[1].ID != "close" || got[2].ID != "mid" {
		t.Errorf("unexpected order: %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Distance < got[i-1].Distance {
			t.Errorf("distances not ascending: %v then %v", got[i-1].Distance, got[i].Distance)
		}
	}
	if got[0].Metadata["id"] != "closest" {
		t.Errorf("metadata not preserved: %+v", got[0].Metadata)
	}
}

func TestMemoryIndex_Delete(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()

	if err := idx.Upsert(ctx, "ev1", []float32{1, 0}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := idx.Delete(ctx, "ev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Deleting an absent id is a no-op.
	if err := idx.Delete(ctx, "ev1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("index has %d entries after delete, want 0", idx.Len())
	}
}
