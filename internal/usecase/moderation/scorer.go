package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventscope/internal/domain"
	"github.com/kailas-cloud/eventscope/internal/metrics"
)

const promptTemplate = `You are a content moderator for a public events platform.
Assess the following event listing for policy violations: explicit content,
abusive content, spam, and fraud.

Title: %s
Description: %s

Respond with a single JSON object and nothing else:
{"riskScore": <0..1>, "flaggedCategories": ["..."], "warnings": [{"category": "...", "severity": "high|medium|low", "message": "..."}]}`

// Scorer assesses event text for policy violations. The primary path asks a
// text-generation provider for a structured verdict; any provider failure or
// malformed reply falls back to the deterministic keyword rules, so scoring
// never returns an error.
type Scorer struct {
	generator     domain.Generator
	flagThreshold float64
	logger        *zap.Logger
}

// NewScorer creates a Scorer. generator may be nil, in which case only the
// rule path runs.
func NewScorer(generator domain.Generator, flagThreshold float64, logger *zap.Logger) *Scorer {
	return &Scorer{
		generator:     generator,
		flagThreshold: flagThreshold,
		logger:        logger,
	}
}

// Score moderates the given title and description.
func (s *Scorer) Score(ctx context.Context, title, description string) domain.ModerationResult {
	if s.generator != nil {
		result, err := s.scoreByLLM(ctx, title, description)
		if err == nil {
			metrics.ModerationScoresTotal.WithLabelValues(
				string(domain.ModerationSourceLLM), strconv.FormatBool(result.IsFlagged),
			).Inc()
			return result
		}
		s.logger.Warn("LLM moderation failed, using rule fallback",
			zap.Error(err),
		)
	}

	result := scoreByRules(title, description, s.flagThreshold)
	metrics.ModerationScoresTotal.WithLabelValues(
		string(domain.ModerationSourceRules), strconv.FormatBool(result.IsFlagged),
	).Inc()
	return result
}

type llmVerdict struct {
	RiskScore         float64  `json:"riskScore"`
	FlaggedCategories []string `json:"flaggedCategories"`
	Warnings          []struct {
		Category string `json:"category"`
		Severity string `json:"severity"`
		Message  string `json:"message"`
	} `json:"warnings"`
}

func (s *Scorer) scoreByLLM(ctx context.Context, title, description string) (domain.ModerationResult, error) {
	reply, err := s.generator.Generate(ctx, fmt.Sprintf(promptTemplate, title, description))
	if err != nil {
		return domain.ModerationResult{}, fmt.Errorf("generate verdict: %w", err)
	}

	var verdict llmVerdict
	if err := json.Unmarshal([]byte(extractJSON(reply)), &verdict); err != nil {
		return domain.ModerationResult{}, fmt.Errorf("parse verdict: %w", err)
	}

	result := domain.ModerationResult{
		Source:            domain.ModerationSourceLLM,
		FlaggedCategories: verdict.FlaggedCategories,
	}
	result.RiskScore = clamp01(verdict.RiskScore)
	result.IsFlagged = result.RiskScore > s.flagThreshold
	for _, w := range verdict.Warnings {
		sev := domain.Severity(strings.ToLower(w.Severity))
		switch sev {
		case domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow:
		default:
			sev = domain.SeverityLow
		}
		result.Warnings = append(result.Warnings, domain.ModerationWarning{
			Category: w.Category,
			Severity: sev,
			Message:  w.Message,
		})
	}
	return result, nil
}

// extractJSON strips optional markdown fences and surrounding prose, keeping
// the outermost object. Providers wrap JSON in code blocks often enough that
// a strict parse alone loses usable verdicts.
func extractJSON(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return reply
	}
	return reply[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
