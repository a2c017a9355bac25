package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; the engine still serves requests
	// on its fallback paths.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Pinger checks a backing store's availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// Service coordinates health checks across the engine's collaborators.
type Service struct {
	eventStore Pinger
	index      Pinger
	embedding  EmbeddingChecker
}

// New creates a Service. index and embedding can be nil when the deployment
// runs without Redis or without an embedding provider.
func New(eventStore Pinger, index Pinger, embedding EmbeddingChecker) *Service {
	return &Service{eventStore: eventStore, index: index, embedding: embedding}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	check := func(name string, err error) {
		if err != nil {
			checks[name] = CheckError
		} else {
			checks[name] = CheckOK
		}
	}

	check("event_store", s.eventStore.Ping(ctx))
	if s.index != nil {
		check("vector_index", s.index.Ping(ctx))
	}
	if s.embedding != nil {
		check("embedding", s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
