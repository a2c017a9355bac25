package domain

// SimilarityResult scores one existing event against a submitted one.
// Invariant: CombinedScore in [0,1].
type SimilarityResult struct {
	CandidateID           string  `json:"candidateId"`
	TitleSimilarity       float64 `json:"titleSimilarity"`
	DescriptionSimilarity float64 `json:"descriptionSimilarity"`
	GeoDistanceKm         float64 `json:"geoDistanceKm"`
	TimeDeltaMs           int64   `json:"timeDeltaMs"`
	CombinedScore         float64 `json:"combinedScore"`
}

// Evaluation is the joined submission verdict consumed by the workflow layer.
// Event is the persisted submission carrying the assigned id, the recommended
// status and the projected flags.
type Evaluation struct {
	Event             Event              `json:"event"`
	Duplicates        []SimilarityResult `json:"duplicates"`
	Moderation        ModerationResult   `json:"moderation"`
	RecommendedStatus Status             `json:"recommendedStatus"`
}

// Flags projects the evaluation into the AIFlags stored on the event.
func (e Evaluation) Flags() AIFlags {
	flags := AIFlags{RiskScore: e.Moderation.RiskScore}
	if len(e.Duplicates) > 0 {
		flags.DuplicateRisk = e.Duplicates[0].CombinedScore
	}
	for _, w := range e.Moderation.Warnings {
		flags.Warnings = append(flags.Warnings, w.Message)
	}
	return flags
}
