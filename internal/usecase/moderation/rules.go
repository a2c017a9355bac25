package moderation

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// formatting penalties applied on top of keyword risk
const (
	capsRatioLimit     = 0.5
	capsPenalty        = 0.3
	exclamationLimit   = 5
	exclamationPenalty = 0.2
)

// ruleCategory groups keywords sharing a severity and per-match weight.
type ruleCategory struct {
	name     string
	severity domain.Severity
	weight   float64
	keywords []string
}

// ruleCategories is the deterministic fallback table used when the
// text-generation provider is unavailable. Matching is whole-word and
// case-insensitive over title and description.
var ruleCategories = []ruleCategory{
	{
		name:     "explicit-content",
		severity: domain.SeverityHigh,
		weight:   0.4,
		keywords: []string{"nsfw", "xxx", "explicit", "nudity", "escort"},
	},
	{
		name:     "abusive-content",
		severity: domain.SeverityHigh,
		weight:   0.4,
		keywords: []string{"hate", "violence", "attack", "threat", "harass"},
	},
	{
		name:     "spam",
		severity: domain.SeverityMedium,
		weight:   0.25,
		keywords: []string{"free", "click", "winner", "prize", "money", "subscribe"},
	},
	{
		name:     "fraudulent",
		severity: domain.SeverityMedium,
		weight:   0.25,
		keywords: []string{"scam", "guaranteed", "investment", "crypto", "giveaway"},
	},
}

// scoreByRules runs the deterministic keyword table over the text.
func scoreByRules(title, description string, flagThreshold float64) domain.ModerationResult {
	text := title + " " + description
	words := tokenize(text)

	result := domain.ModerationResult{Source: domain.ModerationSourceRules}

	var risk float64
	for _, cat := range ruleCategories {
		matches := 0
		for _, kw := range cat.keywords {
			matches += words[kw]
		}
		if matches == 0 {
			continue
		}
		risk += float64(matches) * cat.weight * cat.severity.Multiplier()
		result.FlaggedCategories = append(result.FlaggedCategories, cat.name)
		result.Warnings = append(result.Warnings, domain.ModerationWarning{
			Category: cat.name,
			Severity: cat.severity,
			Message:  fmt.Sprintf("content matched %d %s keyword(s)", matches, cat.name),
		})
	}

	if capsRatio(text) > capsRatioLimit {
		risk += capsPenalty
		result.Warnings = append(result.Warnings, domain.ModerationWarning{
			Category: "formatting",
			Severity: domain.SeverityLow,
			Message:  "excessive capitalization",
		})
	}
	if strings.Count(text, "!") > exclamationLimit {
		risk += exclamationPenalty
		result.Warnings = append(result.Warnings, domain.ModerationWarning{
			Category: "formatting",
			Severity: domain.SeverityLow,
			Message:  "excessive punctuation",
		})
	}

	result.RiskScore = math.Min(1, math.Max(0, risk))
	result.IsFlagged = result.RiskScore > flagThreshold
	return result
}

// tokenize lowercases and splits on non-letter, non-digit runes, counting
// occurrences per word.
func tokenize(text string) map[string]int {
	words := make(map[string]int)
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		words[f]++
	}
	return words
}

// capsRatio returns the share of letters that are uppercase. Texts with
// fewer than 10 letters are exempt, short titles are often acronyms.
func capsRatio(text string) float64 {
	var upper, letters int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters < 10 {
		return 0
	}
	return float64(upper) / float64(letters)
}
