package search

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/eventscope/internal/domain"
)

// Per-token keyword weights. Title hits dominate, category matches beat
// free-text mentions.
const (
	titleTokenWeight    = 3.0
	categoryTokenWeight = 2.0
	textTokenWeight     = 1.0

	minTokenLen = 3
)

// queryTokens lowercases the query and keeps tokens longer than two runes.
// Short tokens ("a", "to", "DJ") add noise faster than signal.
func queryTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// keywordScore sums per-token weights and normalizes by token count, so long
// queries do not automatically outscore short ones.
func keywordScore(tokens []string, ev domain.Event) float64 {
	if len(tokens) == 0 {
		return 0
	}

	title := strings.ToLower(ev.Title)
	category := strings.ToLower(string(ev.Category))
	text := strings.ToLower(ev.Description + " " + ev.Location)

	var score float64
	for _, tok := range tokens {
		if strings.Contains(title, tok) {
			score += titleTokenWeight
		}
		if strings.Contains(category, tok) {
			score += categoryTokenWeight
		}
		if strings.Contains(text, tok) {
			score += textTokenWeight
		}
	}
	return score / float64(len(tokens))
}

// Preference bonuses applied after score fusion.
const (
	categoryPreferenceBonus = 2.0
	locationPreferenceBonus = 1.0
	timePreferenceBonus     = 1.0

	morningEndHour   = 12
	eveningStartHour = 18
)

// preferenceScore re-ranks toward the requester's tastes. Bonuses are
// additive: an event can collect the category, location and time bonus at once.
func preferenceScore(prefs domain.Preferences, ev domain.Event) float64 {
	var score float64

	if containsCategory(prefs.Categories, ev.Category) {
		score += categoryPreferenceBonus
	}

	loc := strings.ToLower(ev.Location)
	for _, p := range prefs.Locations {
		if p != "" && strings.Contains(loc, strings.ToLower(p)) {
			score += locationPreferenceBonus
			break
		}
	}

	hour := ev.StartTime.Hour()
	for _, tod := range prefs.TimesOfDay {
		switch strings.ToLower(tod) {
		case "morning":
			if hour < morningEndHour {
				score += timePreferenceBonus
			}
		case "evening":
			if hour >= eveningStartHour {
				score += timePreferenceBonus
			}
		}
	}

	return score
}
