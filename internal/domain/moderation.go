package domain

// Severity grades a moderation warning.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Multiplier returns the risk weight multiplier for the severity.
func (s Severity) Multiplier() float64 {
	switch s {
	case SeverityHigh:
		return 1.0
	case SeverityMedium:
		return 0.7
	case SeverityLow:
		return 0.5
	}
	return 0.5
}

// ModerationWarning is a single policy concern raised by the scorer.
type ModerationWarning struct {
	Category string   `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Moderation sources.
const (
	ModerationSourceLLM   = "llm"
	ModerationSourceRules = "rules"
)

// ModerationResult is the outcome of scoring event text for policy risk.
// Invariant: IsFlagged == (RiskScore > flag threshold).
type ModerationResult struct {
	RiskScore         float64             `json:"riskScore"`
	Warnings          []ModerationWarning `json:"warnings,omitempty"`
	IsFlagged         bool                `json:"isFlagged"`
	FlaggedCategories []string            `json:"flaggedCategories,omitempty"`
	// Source records which path produced the result: "llm" or "rules".
	Source string `json:"source"`
}
