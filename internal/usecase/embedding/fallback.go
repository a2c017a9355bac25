package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/metrics"
)

// FallbackEmbedder delegates to a primary embedder and switches to a local
// deterministic embedder when the primary fails. The switch is recorded in
// metrics and logged at Warn level so degraded operation stays visible.
type FallbackEmbedder struct {
	primary domain.Embedder
	local   domain.Embedder
	logger  *zap.Logger
}

// NewFallbackEmbedder wraps primary with a local fallback.
func NewFallbackEmbedder(primary, local domain.Embedder, logger *zap.Logger) *FallbackEmbedder {
	return &FallbackEmbedder{primary: primary, local: local, logger: logger}
}

// Embed tries the primary embedder first. Context cancellation is not a
// provider failure and is returned as-is.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	result, err := f.primary.Embed(ctx, text)
	if err == nil {
		return result, nil
	}
	if ctx.Err() != nil {
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingFallbackTotal.Inc()
	f.logger.Warn("Embedding provider failed, using local fallback",
		zap.Error(err),
	)

	return f.local.Embed(ctx, text)
}

// HealthCheck reports the primary embedder's health when it supports checks.
func (f *FallbackEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := f.primary.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
