// Package eventstore adapts the MongoDB events collection to the engine's
// EventStore contract. The engine reads events and writes status/AI flags;
// it never deletes documents.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// Config holds connection settings for the event store.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Repo is the MongoDB-backed event store.
type Repo struct {
	client *mongo.Client
	events *mongo.Collection
}

// Connect dials MongoDB and verifies connectivity with a ping.
func Connect(ctx context.Context, cfg Config) (*Repo, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Repo{
		client: client,
		events: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Close disconnects the client.
func (r *Repo) Close(ctx context.Context) error {
	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

// Ping checks store connectivity (health endpoint).
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Find returns events matching the filter.
func (r *Repo) Find(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	query := bson.M{}
	if f.Status != "" {
		query["status"] = f.Status
	}
	if len(f.Categories) > 0 {
		query["category"] = bson.M{"$in": f.Categories}
	}
	startRange := bson.M{}
	if f.StartAfter != nil {
		startRange["$gte"] = *f.StartAfter
	}
	if f.EndBefore != nil {
		startRange["$lte"] = *f.EndBefore
	}
	if len(startRange) > 0 {
		query["start_time"] = startRange
	}

	cur, err := r.events.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: find: %w", domain.ErrStoreUnavailable, err)
	}
	defer cur.Close(ctx)

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode events: %w", domain.ErrStoreUnavailable, err)
	}

	events := make([]domain.Event, len(docs))
	for i := range docs {
		events[i] = docs[i].toDomain()
	}
	return events, nil
}

// FindByID returns a single event or domain.ErrEventNotFound.
func (r *Repo) FindByID(ctx context.Context, id string) (domain.Event, error) {
	var doc eventDoc
	err := r.events.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Event{}, fmt.Errorf("event %s: %w", id, domain.ErrEventNotFound)
	}
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: find by id: %w", domain.ErrStoreUnavailable, err)
	}
	return doc.toDomain(), nil
}

// Save upserts an event by id, assigning a fresh UUID when the id is empty.
// Returns the stored event.
func (r *Repo) Save(ctx context.Context, ev domain.Event) (domain.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}

	doc := fromDomain(ev)
	_, err := r.events.ReplaceOne(
		ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return domain.Event{}, fmt.Errorf("%w: save event %s: %w", domain.ErrStoreUnavailable, ev.ID, err)
	}
	return ev, nil
}
