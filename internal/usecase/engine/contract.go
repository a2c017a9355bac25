package engine

import (
	"context"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// EventStore reads events for duplicate scans and search candidate gathering,
// and persists evaluated submissions. Save assigns an id when missing and
// returns the stored event.
type EventStore interface {
	Find(ctx context.Context, f domain.EventFilter) ([]domain.Event, error)
	FindByID(ctx context.Context, id string) (domain.Event, error)
	Save(ctx context.Context, ev domain.Event) (domain.Event, error)
}

// IndexMaintainer applies lifecycle changes to the vector index.
type IndexMaintainer interface {
	Add(ctx context.Context, ev domain.Event)
	Update(ctx context.Context, ev domain.Event)
	Remove(ctx context.Context, id string)
}
