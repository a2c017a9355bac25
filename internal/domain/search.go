package domain

import "time"

// Filters are the hard constraints applied before any scoring.
type Filters struct {
	Categories []Category `json:"categories,omitempty"`
	StartAfter *time.Time `json:"startAfter,omitempty"`
	EndBefore  *time.Time `json:"endBefore,omitempty"`
	MaxPrice   *float64   `json:"maxPrice,omitempty"`
}

// Preferences re-rank results toward a user's tastes.
type Preferences struct {
	Categories []Category `json:"categories,omitempty"`
	Locations  []string   `json:"locations,omitempty"`
	// TimesOfDay accepts "morning" (start before 12:00) and "evening" (18:00 or later).
	TimesOfDay []string `json:"timesOfDay,omitempty"`
}

// RankedEvent is a single search hit with its score breakdown.
// Ordering: TotalScore desc, ties by ascending DistanceKm, then ascending StartTime.
type RankedEvent struct {
	Event           Event   `json:"event"`
	KeywordScore    float64 `json:"keywordScore"`
	SemanticScore   float64 `json:"semanticScore"`
	HasSemantic     bool    `json:"hasSemantic"`
	DistanceKm      float64 `json:"distanceKm"`
	PreferenceScore float64 `json:"preferenceScore"`
	TotalScore      float64 `json:"totalScore"`
}
