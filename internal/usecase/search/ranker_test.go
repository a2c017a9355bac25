package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

func testConfig() Config {
	return Config{
		ResultCap:       20,
		MaxResultCap:    100,
		DefaultRadiusKm: 25,
		MaxRadiusKm:     100,
		SemanticTimeout: 3 * time.Second,
		SemanticTopK:    50,
	}
}

func approvedEvent(id, title, description string) domain.Event {
	return domain.Event{
		ID:          id,
		Title:       title,
		Description: description,
		Category:    domain.CategoryMusic,
		Location:    "Berlin",
		StartTime:   time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		Status:      domain.StatusApproved,
	}
}

func TestRank_TitleMatchOutranksDescriptionMatch(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	inTitle := approvedEvent("a", "Jazz Night", "Live music downtown.")
	inDesc := approvedEvent("b", "Evening Concert", "A night of jazz standards.")

	results := r.Rank(context.Background(), Request{Query: "jazz"}, []domain.Event{inDesc, inTitle})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Event.ID != "a" {
		t.Errorf("title match should rank first, got %q", results[0].Event.ID)
	}
	if results[0].KeywordScore <= results[1].KeywordScore {
		t.Errorf("title score %f not above description score %f",
			results[0].KeywordScore, results[1].KeywordScore)
	}
}

func TestRank_OnlyApprovedEvents(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	pending := approvedEvent("p", "Jazz Night", "")
	pending.Status = domain.StatusPending
	rejected := approvedEvent("r", "Jazz Night", "")
	rejected.Status = domain.StatusRejected
	ok := approvedEvent("ok", "Jazz Night", "")

	results := r.Rank(context.Background(), Request{Query: "jazz"}, []domain.Event{pending, rejected, ok})
	if len(results) != 1 || results[0].Event.ID != "ok" {
		t.Errorf("only approved events may surface, got %d results", len(results))
	}
}

func TestRank_HardFilters(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	music := approvedEvent("music", "Jazz Night", "")
	sports := approvedEvent("sports", "City Marathon", "")
	sports.Category = domain.CategorySports
	expensive := approvedEvent("expensive", "Gala Jazz Dinner", "")
	expensive.Price = 120

	maxPrice := 50.0
	req := Request{
		Query: "jazz",
		Filters: domain.Filters{
			Categories: []domain.Category{domain.CategoryMusic},
			MaxPrice:   &maxPrice,
		},
	}

	results := r.Rank(context.Background(), req, []domain.Event{music, sports, expensive})
	if len(results) != 1 || results[0].Event.ID != "music" {
		t.Fatalf("filters not applied, got %d results", len(results))
	}
}

func TestRank_DateRangeOnStartTime(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	early := approvedEvent("early", "Jazz Night", "")
	early.StartTime = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	late := approvedEvent("late", "Jazz Night", "")
	late.StartTime = time.Date(2024, 8, 1, 20, 0, 0, 0, time.UTC)
	within := approvedEvent("within", "Jazz Night", "")

	after := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	req := Request{Query: "jazz", Filters: domain.Filters{StartAfter: &after, EndBefore: &before}}

	results := r.Rank(context.Background(), req, []domain.Event{early, late, within})
	if len(results) != 1 || results[0].Event.ID != "within" {
		t.Errorf("date range not applied, got %d results", len(results))
	}
}

func TestRank_RadiusExcludesFarEvents(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	near := approvedEvent("near", "Jazz Night", "")
	near.Coordinates = &domain.Coordinates{Longitude: 13.41, Latitude: 52.52}
	far := approvedEvent("far", "Jazz Night", "")
	far.Coordinates = &domain.Coordinates{Longitude: 2.35, Latitude: 48.85} // Paris
	noCoords := approvedEvent("nocoords", "Jazz Night", "")

	req := Request{
		Query:    "jazz",
		Location: &domain.Coordinates{Longitude: 13.405, Latitude: 52.52},
	}

	results := r.Rank(context.Background(), req, []domain.Event{near, far, noCoords})
	if len(results) != 1 || results[0].Event.ID != "near" {
		t.Fatalf("expected only the nearby event, got %d results", len(results))
	}
	// The 0.005° longitude step at 52.52°N is ~0.34 km; a swapped lat/lon
	// argument order would report ~0.56 km.
	if results[0].DistanceKm < 0.2 || results[0].DistanceKm > 0.45 {
		t.Errorf("unexpected distance %f", results[0].DistanceKm)
	}
}

func TestRank_RadiusClampedToMax(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	far := approvedEvent("far", "Jazz Night", "")
	// ~878 km away, beyond any allowed radius.
	far.Coordinates = &domain.Coordinates{Longitude: 2.35, Latitude: 48.85}

	req := Request{
		Query:    "jazz",
		Location: &domain.Coordinates{Longitude: 13.405, Latitude: 52.52},
		RadiusKm: 5000,
	}

	results := r.Rank(context.Background(), req, []domain.Event{far})
	if len(results) != 0 {
		t.Errorf("requested radius must be clamped to the max, got %d results", len(results))
	}
}

func TestRank_PreferencesBreakTies(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	plain := approvedEvent("plain", "Jazz Night", "")
	preferred := approvedEvent("preferred", "Jazz Night", "")
	preferred.Location = "Kreuzberg, Berlin"

	req := Request{
		Query:       "jazz",
		Preferences: domain.Preferences{Locations: []string{"Kreuzberg"}},
	}

	results := r.Rank(context.Background(), req, []domain.Event{plain, preferred})
	if results[0].Event.ID != "preferred" {
		t.Errorf("preferred location should rank first, got %q", results[0].Event.ID)
	}
	if results[0].PreferenceScore != 1 {
		t.Errorf("expected location bonus 1, got %f", results[0].PreferenceScore)
	}
}

func TestRank_TimeOfDayPreference(t *testing.T) {
	r := NewRanker(testConfig(), nil, nil, zap.NewNop())

	morning := approvedEvent("morning", "Yoga in the Park", "")
	morning.StartTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	evening := approvedEvent("evening", "Yoga in the Park", "")
	evening.StartTime = time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)

	req := Request{Query: "yoga", Preferences: domain.Preferences{TimesOfDay: []string{"morning"}}}

	results := r.Rank(context.Background(), req, []domain.Event{evening, morning})
	if results[0].Event.ID != "morning" {
		t.Errorf("morning preference should rank the 9:00 event first, got %q", results[0].Event.ID)
	}
}

func TestRank_LimitTruncates(t *testing.T) {
	cfg := testConfig()
	r := NewRanker(cfg, nil, nil, zap.NewNop())

	events := make([]domain.Event, 30)
	for i := range events {
		events[i] = approvedEvent(string(rune('a'+i)), "Jazz Night", "")
	}

	results := r.Rank(context.Background(), Request{Query: "jazz"}, events)
	if len(results) != cfg.ResultCap {
		t.Errorf("expected default cap %d, got %d", cfg.ResultCap, len(results))
	}

	results = r.Rank(context.Background(), Request{Query: "jazz", Limit: 5}, events)
	if len(results) != 5 {
		t.Errorf("expected requested limit 5, got %d", len(results))
	}
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

type stubIndex struct {
	neighbors []domain.Neighbor
	err       error
}

func (s *stubIndex) Upsert(context.Context, string, []float32, map[string]string) error {
	return nil
}
func (s *stubIndex) Delete(context.Context, string) error { return nil }
func (s *stubIndex) Query(context.Context, []float32, int) ([]domain.Neighbor, error) {
	return s.neighbors, s.err
}

func TestRank_SemanticFusion(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	idx := &stubIndex{neighbors: []domain.Neighbor{
		{ID: "b", Distance: 0.1},
		{ID: "missing", Distance: 0.05},
	}}
	r := NewRanker(testConfig(), emb, idx, zap.NewNop())

	a := approvedEvent("a", "Jazz Night", "")
	b := approvedEvent("b", "Evening Concert", "")

	results := r.Rank(context.Background(), Request{Query: "jazz"}, []domain.Event{a, b})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	var hitB domain.RankedEvent
	for _, re := range results {
		if re.Event.ID == "b" {
			hitB = re
		}
	}
	if !hitB.HasSemantic {
		t.Fatal("event b should carry a semantic score")
	}
	if hitB.SemanticScore < 0.89 || hitB.SemanticScore > 0.91 {
		t.Errorf("expected semantic score ~0.9, got %f", hitB.SemanticScore)
	}
	// Fusion is the mean of keyword and semantic scores.
	want := (hitB.KeywordScore + hitB.SemanticScore) / 2
	if hitB.TotalScore != want {
		t.Errorf("expected fused score %f, got %f", want, hitB.TotalScore)
	}
}

func TestRank_SemanticFailureKeywordOnly(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("provider down")}
	r := NewRanker(testConfig(), emb, &stubIndex{}, zap.NewNop())

	ev := approvedEvent("a", "Jazz Night", "")
	results := r.Rank(context.Background(), Request{Query: "jazz"}, []domain.Event{ev})
	if len(results) != 1 {
		t.Fatalf("semantic failure must not empty results, got %d", len(results))
	}
	if results[0].HasSemantic {
		t.Error("no semantic score expected after embed failure")
	}
	if results[0].KeywordScore == 0 {
		t.Error("keyword score should survive")
	}
}

func TestRank_IndexFailureKeywordOnly(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{1, 0}}
	idx := &stubIndex{err: errors.New("index offline")}
	r := NewRanker(testConfig(), emb, idx, zap.NewNop())

	ev := approvedEvent("a", "Jazz Night", "")
	results := r.Rank(context.Background(), Request{Query: "jazz"}, []domain.Event{ev})
	if len(results) != 1 || results[0].HasSemantic {
		t.Error("index failure must degrade to keyword-only")
	}
}

func TestQueryTokens(t *testing.T) {
	got := queryTokens("Live Jazz & DJ sets in Berlin!")
	want := []string{"live", "jazz", "sets", "berlin"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
