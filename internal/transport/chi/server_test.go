package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/usecase/duplicate"
	engineuc "github.com/kailas-cloud/eventscope/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/eventscope/internal/usecase/health"
	"github.com/kailas-cloud/eventscope/internal/usecase/moderation"
	searchuc "github.com/kailas-cloud/eventscope/internal/usecase/search"
)

type stubStore struct {
	events []domain.Event
	err    error
}

func (s *stubStore) Find(_ context.Context, _ domain.EventFilter) ([]domain.Event, error) {
	return s.events, s.err
}

func (s *stubStore) FindByID(_ context.Context, id string) (domain.Event, error) {
	if s.err != nil {
		return domain.Event{}, s.err
	}
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.Event{}, domain.ErrEventNotFound
}

func (s *stubStore) Save(_ context.Context, ev domain.Event) (domain.Event, error) {
	if s.err != nil {
		return domain.Event{}, s.err
	}
	if ev.ID == "" {
		ev.ID = "generated"
	}
	return ev, nil
}

func (s *stubStore) Ping(context.Context) error { return s.err }

func newTestServer(store *stubStore) http.Handler {
	log := zap.NewNop()
	detector := duplicate.NewDetector(duplicate.Config{
		CandidateThreshold:  0.7,
		AutoRejectThreshold: 0.9,
	}, log)
	scorer := moderation.NewScorer(nil, 0.5, log)
	ranker := searchuc.NewRanker(searchuc.Config{
		ResultCap:       20,
		MaxResultCap:    100,
		DefaultRadiusKm: 25,
		MaxRadiusKm:     100,
		SemanticTimeout: 3 * time.Second,
		SemanticTopK:    50,
	}, nil, nil, log)
	engine := engineuc.New(store, detector, scorer, ranker, nil, log)
	health := healthuc.New(store, nil, nil)

	srv := NewServer(engine, health, log)
	r := chirouter.NewRouter()
	srv.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEvaluateEvent_CleanSubmission(t *testing.T) {
	h := newTestServer(&stubStore{})

	body := `{"title":"Jazz Night","description":"Live jazz downtown.","category":"music","startTime":"2024-06-01T20:00:00Z"}`
	rec := doJSON(t, h, http.MethodPost, "/v1/events/evaluate", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp evaluateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RecommendedStatus != domain.StatusApproved {
		t.Errorf("expected approved, got %s", resp.RecommendedStatus)
	}
	if resp.Duplicates == nil {
		t.Error("duplicates must be an empty array, not null")
	}
	if resp.Event.ID == "" {
		t.Error("response should carry the persisted event with its assigned id")
	}
	if resp.Event.Status != domain.StatusApproved {
		t.Errorf("persisted event should carry the recommended status, got %s", resp.Event.Status)
	}
}

func TestEvaluateEvent_ValidationFailure(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodPost, "/v1/events/evaluate", `{"description":"no title"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != codeValidationFailed {
		t.Errorf("expected %s, got %s", codeValidationFailed, resp.Code)
	}
}

func TestEvaluateEvent_MalformedBody(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodPost, "/v1/events/evaluate", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEvaluateEvent_StoreUnavailable(t *testing.T) {
	h := newTestServer(&stubStore{err: domain.ErrStoreUnavailable})

	body := `{"title":"Jazz Night","description":"Live jazz downtown."}`
	rec := doJSON(t, h, http.MethodPost, "/v1/events/evaluate", body)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestSearchEvents_ReturnsRankedResults(t *testing.T) {
	store := &stubStore{events: []domain.Event{{
		ID:          "a",
		Title:       "Jazz Night",
		Description: "Live jazz downtown.",
		Category:    domain.CategoryMusic,
		StartTime:   time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC),
		Status:      domain.StatusApproved,
	}}}
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/v1/search", `{"query":"jazz"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got count=%d", resp.Count)
	}
	if resp.Results[0].Event.ID != "a" {
		t.Errorf("unexpected result id %q", resp.Results[0].Event.ID)
	}
}

func TestSearchEvents_InvalidLocation(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodPost, "/v1/search", `{"query":"jazz","location":{"longitude":500,"latitude":0}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEventLifecycle_Accepted(t *testing.T) {
	store := &stubStore{events: []domain.Event{{
		ID:          "ev1",
		Title:       "Jazz Night",
		Description: "Live jazz downtown.",
		Status:      domain.StatusApproved,
	}}}
	h := newTestServer(store)

	rec := doJSON(t, h, http.MethodPost, "/v1/events/ev1/lifecycle", `{"action":"approved"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestEventLifecycle_UnknownAction(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodPost, "/v1/events/ev1/lifecycle", `{"action":"archived"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestEventLifecycle_MissingEvent(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodPost, "/v1/events/gone/lifecycle", `{"action":"approved"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	// Deletions succeed without the stored event.
	rec = doJSON(t, h, http.MethodPost, "/v1/events/gone/lifecycle", `{"action":"deleted"}`)
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 for delete of missing event, got %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestServer(&stubStore{})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Status string                          `json:"status"`
		Checks map[string]healthuc.CheckResult `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(healthuc.Healthy) {
		t.Errorf("expected ok, got %s", resp.Status)
	}
}

func TestHealthCheck_DegradedStore(t *testing.T) {
	h := newTestServer(&stubStore{err: domain.ErrStoreUnavailable})

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
