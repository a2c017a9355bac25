package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	emb := NewLocalEmbedder(64)
	ctx := context.Background()

	a, err := emb.Embed(ctx, "open air cinema")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := emb.Embed(ctx, "open air cinema")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(a.Embedding) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(a.Embedding))
	}
	if !a.Degraded {
		t.Error("expected Degraded flag set")
	}
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a.Embedding[i], b.Embedding[i])
		}
	}
}

func TestLocalEmbedder_DistinctTexts(t *testing.T) {
	emb := NewLocalEmbedder(32)
	ctx := context.Background()

	a, _ := emb.Embed(ctx, "jazz night")
	b, _ := emb.Embed(ctx, "food truck festival")

	same := true
	for i := range a.Embedding {
		if a.Embedding[i] != b.Embedding[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func TestLocalEmbedder_UnitNorm(t *testing.T) {
	emb := NewLocalEmbedder(128)

	res, _ := emb.Embed(context.Background(), "normalized")
	var norm float64
	for _, v := range res.Embedding {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-4 {
		t.Errorf("expected unit vector, got norm %f", math.Sqrt(norm))
	}
}

type failingEmbedder struct {
	err   error
	calls int
}

func (f *failingEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.err != nil {
		return domain.EmbeddingResult{}, f.err
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0}, TotalTokens: 3}, nil
}

func TestFallbackEmbedder_UsesPrimaryWhenHealthy(t *testing.T) {
	primary := &failingEmbedder{}
	fb := NewFallbackEmbedder(primary, NewLocalEmbedder(2), zap.NewNop())

	res, err := fb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.Degraded {
		t.Error("primary result should not be degraded")
	}
	if res.TotalTokens != 3 {
		t.Errorf("expected primary token count, got %d", res.TotalTokens)
	}
}

func TestFallbackEmbedder_FallsBackOnError(t *testing.T) {
	primary := &failingEmbedder{err: domain.ErrProviderUnavailable}
	fb := NewFallbackEmbedder(primary, NewLocalEmbedder(16), zap.NewNop())

	res, err := fb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if !res.Degraded {
		t.Error("fallback result must be marked degraded")
	}
	if len(res.Embedding) != 16 {
		t.Errorf("expected 16 dimensions, got %d", len(res.Embedding))
	}
}

func TestFallbackEmbedder_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &failingEmbedder{err: context.Canceled}
	fb := NewFallbackEmbedder(primary, NewLocalEmbedder(16), zap.NewNop())

	if _, err := fb.Embed(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context error passed through, got %v", err)
	}
}
