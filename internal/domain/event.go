package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category is the closed event category enumeration.
type Category string

const (
	CategoryMusic       Category = "music"
	CategorySports      Category = "sports"
	CategoryWorkshop    Category = "workshop"
	CategoryExhibition  Category = "exhibition"
	CategoryCollegeFest Category = "college-fest"
	CategoryReligious   Category = "religious"
	CategoryPromotion   Category = "promotion"
	CategoryOther       Category = "other"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryMusic, CategorySports, CategoryWorkshop, CategoryExhibition,
		CategoryCollegeFest, CategoryReligious, CategoryPromotion, CategoryOther:
		return true
	}
	return false
}

// Status is the event moderation status.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// LifecycleAction is an event store lifecycle notification.
type LifecycleAction string

const (
	ActionCreated  LifecycleAction = "created"
	ActionApproved LifecycleAction = "approved"
	ActionUpdated  LifecycleAction = "updated"
	ActionRejected LifecycleAction = "rejected"
	ActionDeleted  LifecycleAction = "deleted"
)

// IsValid reports whether the action is part of the enumeration.
func (a LifecycleAction) IsValid() bool {
	switch a {
	case ActionCreated, ActionApproved, ActionUpdated, ActionRejected, ActionDeleted:
		return true
	}
	return false
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether the point is finite and inside the WGS84 ranges.
// Events without a geocoded location carry nil *Coordinates instead, so a
// literal (0,0) is treated as a real point.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// AIFlags holds engine-produced signals consumed by admin tooling.
type AIFlags struct {
	DuplicateRisk float64  `json:"duplicateRisk" bson:"duplicate_risk"`
	RiskScore     float64  `json:"riskScore" bson:"risk_score"`
	Warnings      []string `json:"warnings,omitempty" bson:"warnings,omitempty"`
}

// Event is the event-store entity. The engine reads most fields and writes
// only Status and AIFlags; it never deletes events.
type Event struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    Category     `json:"category"`
	Location    string       `json:"location"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	StartTime   time.Time    `json:"startTime"`
	EndTime     *time.Time   `json:"endTime,omitempty"`
	Price       float64      `json:"price"`
	Status      Status       `json:"status"`
	AIFlags     AIFlags      `json:"aiFlags"`
}

// Validate checks the fields the engine depends on. Coordinates and EndTime
// are optional, but must be well-formed when present.
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidEvent)
	}
	if e.Category != "" && !e.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, e.Category)
	}
	if e.Coordinates != nil && !e.Coordinates.Valid() {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates,
			e.Coordinates.Latitude, e.Coordinates.Longitude)
	}
	if e.EndTime != nil && !e.StartTime.IsZero() && !e.EndTime.After(e.StartTime) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidEvent)
	}
	return nil
}

// EventFilter narrows store reads. Zero values mean "no constraint".
type EventFilter struct {
	Status     Status
	Categories []Category
	StartAfter *time.Time
	EndBefore  *time.Time
}

// SearchText is the text indexed for semantic retrieval.
func (e *Event) SearchText() string {
	parts := []string{e.Title, e.Description}
	if e.Location != "" {
		parts = append(parts, e.Location)
	}
	if e.Category != "" {
		parts = append(parts, string(e.Category))
	}
	return strings.Join(parts, "\n")
}
