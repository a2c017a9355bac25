package eventstore

import (
	"time"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// eventDoc is the BSON representation of an event. Coordinates follow
// GeoJSON order (longitude, latitude) so the collection can carry a 2dsphere
// index maintained outside the engine.
type eventDoc struct {
	ID          string     `bson:"_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description"`
	Category    string     `bson:"category,omitempty"`
	Location    string     `bson:"location,omitempty"`
	Coordinates []float64  `bson:"coordinates,omitempty"`
	StartTime   time.Time  `bson:"start_time"`
	EndTime     *time.Time `bson:"end_time,omitempty"`
	Price       float64    `bson:"price,omitempty"`
	Status      string     `bson:"status"`
	AIFlags     aiFlagsDoc `bson:"ai_flags"`
}

type aiFlagsDoc struct {
	DuplicateRisk float64  `bson:"duplicate_risk"`
	RiskScore     float64  `bson:"risk_score"`
	Warnings      []string `bson:"warnings,omitempty"`
}

func fromDomain(ev domain.Event) eventDoc {
	doc := eventDoc{
		ID:          ev.ID,
		Title:       ev.Title,
		Description: ev.Description,
		Category:    string(ev.Category),
		Location:    ev.Location,
		StartTime:   ev.StartTime,
		EndTime:     ev.EndTime,
		Price:       ev.Price,
		Status:      string(ev.Status),
		AIFlags: aiFlagsDoc{
			DuplicateRisk: ev.AIFlags.DuplicateRisk,
			RiskScore:     ev.AIFlags.RiskScore,
			Warnings:      ev.AIFlags.Warnings,
		},
	}
	if ev.Coordinates != nil {
		doc.Coordinates = []float64{ev.Coordinates.Longitude, ev.Coordinates.Latitude}
	}
	return doc
}

func (d *eventDoc) toDomain() domain.Event {
	ev := domain.Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		Location:    d.Location,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Price:       d.Price,
		Status:      domain.Status(d.Status),
		AIFlags: domain.AIFlags{
			DuplicateRisk: d.AIFlags.DuplicateRisk,
			RiskScore:     d.AIFlags.RiskScore,
			Warnings:      d.AIFlags.Warnings,
		},
	}
	if len(d.Coordinates) == 2 {
		ev.Coordinates = &domain.Coordinates{
			Longitude: d.Coordinates[0],
			Latitude:  d.Coordinates[1],
		}
	}
	return ev
}
