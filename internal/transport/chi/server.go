package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	logpkg "github.com/kailas-cloud/eventscope/internal/logger"
	engineuc "github.com/kailas-cloud/eventscope/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/eventscope/internal/usecase/health"
	searchuc "github.com/kailas-cloud/eventscope/internal/usecase/search"
)

// Stable machine-readable error codes.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeEventNotFound    = "event_not_found"
	codeStoreUnavailable = "store_unavailable"
	codeProviderRejected = "provider_error"
	codeInternalError    = "internal_error"
	codeUnauthorized     = "unauthorized"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the engine over HTTP.
type Server struct {
	engine        *engineuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(engine *engineuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		engine: engine,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidEvent, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidCoordinates, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrEventNotFound, http.StatusNotFound, codeEventNotFound),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
		sentinelHandler(domain.ErrProviderUnavailable, http.StatusBadGateway, codeProviderRejected),
	}
	return s
}

// RegisterRoutes mounts all API routes on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/v1/events/evaluate", s.EvaluateEvent)
	r.Post("/v1/search", s.SearchEvents)
	r.Post("/v1/events/{id}/lifecycle", s.EventLifecycle)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type evaluateResponse struct {
	Event             domain.Event              `json:"event"`
	Duplicates        []domain.SimilarityResult `json:"duplicates"`
	Moderation        domain.ModerationResult   `json:"moderation"`
	RecommendedStatus domain.Status             `json:"recommendedStatus"`
	AIFlags           domain.AIFlags            `json:"aiFlags"`
}

// EvaluateEvent handles POST /v1/events/evaluate.
func (s *Server) EvaluateEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	eval, err := s.engine.EvaluateSubmission(r.Context(), ev)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := evaluateResponse{
		Event:             eval.Event,
		Duplicates:        eval.Duplicates,
		Moderation:        eval.Moderation,
		RecommendedStatus: eval.RecommendedStatus,
		AIFlags:           eval.Flags(),
	}
	if resp.Duplicates == nil {
		resp.Duplicates = []domain.SimilarityResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}

type searchResponse struct {
	Results []domain.RankedEvent `json:"results"`
	Count   int                  `json:"count"`
}

// SearchEvents handles POST /v1/search.
func (s *Server) SearchEvents(w http.ResponseWriter, r *http.Request) {
	var req searchuc.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Location != nil && !req.Location.Valid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "location is out of range")
		return
	}

	results, err := s.engine.Search(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

type lifecycleRequest struct {
	Action domain.LifecycleAction `json:"action"`
}

// EventLifecycle handles POST /v1/events/{id}/lifecycle.
func (s *Server) EventLifecycle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "event id is required")
		return
	}

	var req lifecycleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !req.Action.IsValid() {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown lifecycle action")
		return
	}

	if err := s.engine.LifecycleByID(r.Context(), id, req.Action); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidEvent,
		domain.ErrInvalidCoordinates,
		domain.ErrEventNotFound,
		domain.ErrStoreUnavailable,
		domain.ErrProviderUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logpkg.FromContext(r.Context()).Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
