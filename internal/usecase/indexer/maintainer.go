package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/metrics"
)

// Config bounds the asynchronous retry behavior.
type Config struct {
	// MaxRetries is the number of background attempts after the first
	// synchronous failure.
	MaxRetries int
	// BaseBackoff is the delay before the first retry; each further retry
	// doubles it.
	BaseBackoff time.Duration
}

// ApplyDefaults fills zero fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = time.Second
	}
}

// Maintainer keeps the vector index in sync with event lifecycle changes.
// Operations on the same event id are serialized through keyed mutexes, so a
// late Add cannot overwrite a newer Remove. Failures are retried in the
// background with exponential backoff and never surface to the caller.
type Maintainer struct {
	index    domain.VectorIndex
	embedder domain.Embedder
	cfg      Config
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*idLock

	wg     sync.WaitGroup
	closed chan struct{}
}

type idLock struct {
	sync.Mutex
	refs int
}

// NewMaintainer creates a Maintainer.
func NewMaintainer(index domain.VectorIndex, embedder domain.Embedder, cfg Config, logger *zap.Logger) *Maintainer {
	cfg.ApplyDefaults()
	return &Maintainer{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
		locks:    make(map[string]*idLock),
		closed:   make(chan struct{}),
	}
}

// Add embeds the event text and upserts it into the index. Calling Add for an
// already indexed event refreshes its vector in place.
func (m *Maintainer) Add(ctx context.Context, ev domain.Event) {
	m.run(ctx, "add", ev.ID, func(ctx context.Context) error {
		return m.upsert(ctx, ev)
	})
}

// Update re-embeds and upserts the event. Same semantics as Add.
func (m *Maintainer) Update(ctx context.Context, ev domain.Event) {
	m.run(ctx, "update", ev.ID, func(ctx context.Context) error {
		return m.upsert(ctx, ev)
	})
}

// Remove deletes the event from the index. Removing an absent id is a no-op.
func (m *Maintainer) Remove(ctx context.Context, id string) {
	m.run(ctx, "remove", id, func(ctx context.Context) error {
		return m.index.Delete(ctx, id)
	})
}

// Close stops scheduling retries and waits for in-flight ones to drain.
func (m *Maintainer) Close() {
	close(m.closed)
	m.wg.Wait()
}

func (m *Maintainer) upsert(ctx context.Context, ev domain.Event) error {
	result, err := m.embedder.Embed(ctx, ev.SearchText())
	if err != nil {
		return fmt.Errorf("embed event %s: %w", ev.ID, err)
	}
	meta := map[string]string{
		"category": string(ev.Category),
		"status":   string(ev.Status),
	}
	if err := m.index.Upsert(ctx, ev.ID, result.Embedding, meta); err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	return nil
}

// run executes op under the id's lock and schedules a background retry on
// failure.
func (m *Maintainer) run(ctx context.Context, op, id string, fn func(context.Context) error) {
	err := m.withLock(id, func() error { return fn(ctx) })
	if err == nil {
		metrics.IndexOperationsTotal.WithLabelValues(op, "ok").Inc()
		return
	}

	metrics.IndexOperationsTotal.WithLabelValues(op, "error").Inc()
	m.logger.Warn("Index operation failed, scheduling retry",
		zap.String("op", op),
		zap.String("event_id", id),
		zap.Error(err),
	)

	m.wg.Add(1)
	go m.retry(op, id, fn)
}

func (m *Maintainer) retry(op, id string, fn func(context.Context) error) {
	defer m.wg.Done()

	backoff := m.cfg.BaseBackoff
	for attempt := 1; attempt <= m.cfg.MaxRetries; attempt++ {
		select {
		case <-m.closed:
			return
		case <-time.After(backoff):
		}
		backoff *= 2

		metrics.IndexRetriesTotal.Inc()
		err := m.withLock(id, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return fn(ctx)
		})
		if err == nil {
			metrics.IndexOperationsTotal.WithLabelValues(op, "retry_ok").Inc()
			m.logger.Info("Index retry succeeded",
				zap.String("op", op),
				zap.String("event_id", id),
				zap.Int("attempt", attempt),
			)
			return
		}
		m.logger.Warn("Index retry failed",
			zap.String("op", op),
			zap.String("event_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	metrics.IndexOperationsTotal.WithLabelValues(op, "gave_up").Inc()
}

// withLock serializes fn against other operations on the same id. Lock
// entries are reference counted and removed once idle.
func (m *Maintainer) withLock(id string, fn func() error) error {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &idLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	err := fn()
	l.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, id)
	}
	m.mu.Unlock()

	return err
}
