package metrics

import "github.com/prometheus/client_golang/prometheus"

// Engine Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventscope",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "embedding_errors_total",
			Help:      "Total embedding errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	// EmbeddingFallbackTotal counts vectors produced by the deterministic
	// local-hash embedder instead of the real provider. A growing counter
	// here means search quality is degraded.
	EmbeddingFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "embedding_fallback_total",
			Help:      "Embeddings produced by the deterministic local fallback",
		},
	)

	ModerationScoresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "moderation_scores_total",
			Help:      "Moderation scoring requests by path and verdict",
		},
		[]string{"source", "flagged"}, // source: "llm" / "rules"
	)

	DuplicateScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "duplicate_scans_total",
			Help:      "Duplicate scans by outcome",
		},
		[]string{"outcome"}, // "clean" / "candidates" / "auto_reject"
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "search_degraded_total",
			Help:      "Searches that fell back to keyword-only ranking",
		},
		[]string{"reason"}, // "embed_error" / "index_error" / "deadline" / "disabled"
	)

	IndexOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "index_operations_total",
			Help:      "Vector index maintenance operations",
		},
		[]string{"op", "status"}, // op: "add" / "update" / "remove"
	)

	IndexRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eventscope",
			Name:      "index_retries_total",
			Help:      "Asynchronous retries of failed vector index writes",
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers engine Prometheus metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingErrorsTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(EmbeddingFallbackTotal)
	prometheus.MustRegister(ModerationScoresTotal)
	prometheus.MustRegister(DuplicateScansTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(IndexOperationsTotal)
	prometheus.MustRegister(IndexRetriesTotal)
	engineMetricsRegistered = true
}
