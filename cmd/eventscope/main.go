package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/config"
	"github.com/kailas-cloud/eventscope/internal/db"
	dbRedis "github.com/kailas-cloud/eventscope/internal/db/redis"
	"github.com/kailas-cloud/eventscope/internal/domain"
	logpkg "github.com/kailas-cloud/eventscope/internal/logger"
	"github.com/kailas-cloud/eventscope/internal/metrics"
	"github.com/kailas-cloud/eventscope/internal/repository/embcache"
	"github.com/kailas-cloud/eventscope/internal/repository/eventstore"
	"github.com/kailas-cloud/eventscope/internal/repository/vecindex"
	chiTransport "github.com/kailas-cloud/eventscope/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/eventscope/internal/transport/openai"
	duplicateuc "github.com/kailas-cloud/eventscope/internal/usecase/duplicate"
	embeddinguc "github.com/kailas-cloud/eventscope/internal/usecase/embedding"
	engineuc "github.com/kailas-cloud/eventscope/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/eventscope/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/eventscope/internal/usecase/indexer"
	moderationuc "github.com/kailas-cloud/eventscope/internal/usecase/moderation"
	searchuc "github.com/kailas-cloud/eventscope/internal/usecase/search"
	"github.com/kailas-cloud/eventscope/internal/version"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting eventscope API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("mongo_db", cfg.Mongo.Database),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	ctx := context.Background()

	// Event store
	repo, err := eventstore.Connect(ctx, eventstore.Config{
		URI:        cfg.Mongo.URI,
		Database:   cfg.Mongo.Database,
		Collection: cfg.Mongo.Collection,
		Timeout:    time.Duration(cfg.Mongo.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to connect to event store", zap.Error(err))
	}
	defer func() { _ = repo.Close(context.Background()) }()
	logger.Info("Connected to event store")

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Vector index: Redis FT when configured, in-process brute force otherwise
	var (
		index      domain.VectorIndex
		redisStore db.Store
	)
	if len(cfg.Redis.Addrs) > 0 {
		redisStore, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer redisStore.Close()

		readiness := time.Duration(cfg.Redis.ReadinessTimeout) * time.Second
		if err := redisStore.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}

		redisIndex := vecindex.NewRedisIndex(redisStore, cfg.Embedding.Dimensions)
		if err := redisIndex.EnsureIndex(ctx); err != nil {
			// A dimension mismatch means the index was built for another
			// embedding model; refusing to start beats silent bad answers.
			logger.Fatal("Failed to ensure vector index", zap.Error(err))
		}
		index = redisIndex
		logger.Info("Using Redis vector index", zap.Int("dimensions", cfg.Embedding.Dimensions))
	} else {
		index = vecindex.NewMemoryIndex(cfg.Embedding.Dimensions)
		logger.Warn("No Redis configured, using in-memory vector index")
	}

	embedder := buildEmbedder(cfg, redisStore, logger)

	// Moderation: LLM primary only when a chat model is configured
	var generator domain.Generator
	if cfg.Moderation.Model != "" && cfg.Embedding.APIKey != "" {
		generator = openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Moderation.Model,
		})
		logger.Info("LLM moderation enabled", zap.String("model", cfg.Moderation.Model))
	} else {
		logger.Info("LLM moderation disabled, rule-based scoring only")
	}

	// Use case services
	detector := duplicateuc.NewDetector(duplicateuc.Config{
		CandidateThreshold:  cfg.Duplicate.CandidateThreshold,
		AutoRejectThreshold: cfg.Duplicate.AutoRejectThreshold,
	}, logger)
	scorer := moderationuc.NewScorer(generator, cfg.Moderation.FlagThreshold, logger)
	ranker := searchuc.NewRanker(searchuc.Config{
		ResultCap:       cfg.Search.ResultCap,
		MaxResultCap:    cfg.Search.MaxResultCap,
		DefaultRadiusKm: cfg.Search.DefaultRadiusKm,
		MaxRadiusKm:     cfg.Search.MaxRadiusKm,
		SemanticTimeout: time.Duration(cfg.Search.SemanticTimeout) * time.Second,
		SemanticTopK:    cfg.Search.SemanticTopK,
	}, embedder, index, logger)

	maintainer := indexeruc.NewMaintainer(index, embedder, indexeruc.Config{}, logger)
	defer maintainer.Close()

	engine := engineuc.New(repo, detector, scorer, ranker, maintainer, logger)

	var indexPinger healthuc.Pinger
	if redisStore != nil {
		indexPinger = redisStore
	}
	healthSvc := healthuc.New(repo, indexPinger, newEmbeddingHealthChecker(embedder))

	// HTTP server
	server := chiTransport.NewServer(engine, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.RegisterRoutes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Fallback.
// Without an API key the deterministic local embedder runs alone, which keeps
// development and tests working offline at reduced search quality.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	local := embeddinguc.NewLocalEmbedder(cfg.Embedding.Dimensions)

	if cfg.Embedding.APIKey == "" {
		logger.Warn("No embedding API key configured, using local fallback embedder only")
		return local
	}

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if store != nil {
		embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
	}

	logger.Info("Embedder chain created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return embeddinguc.NewFallbackEmbedder(embedder, local, logger)
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
