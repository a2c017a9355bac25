// Package textsim computes normalized similarity between two strings by
// blending three independent measures: Jaccard over word sets, cosine over
// character bigrams, and normalized Levenshtein edit distance.
package textsim

import (
	"math"
	"strings"
)

// Blend weights. Fixed rather than learned: deterministic and explainable.
const (
	jaccardWeight     = 0.4
	cosineWeight      = 0.4
	levenshteinWeight = 0.2
)

// Similarity returns a blended similarity in [0,1]. Both inputs are
// lowercased and trimmed first; identical strings score 1 (the empty
// string included), an empty string scores 0 against anything else.
func Similarity(a, b string) float64 {
	a = normalize(a)
	b = normalize(b)

	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	return jaccardWeight*Jaccard(a, b) +
		cosineWeight*BigramCosine(a, b) +
		levenshteinWeight*normalizedLevenshtein(a, b)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Jaccard computes |A∩B| / |A∪B| over whitespace-tokenized word sets.
// Returns 0 when both token sets are empty (0/0 case).
func Jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// BigramCosine computes cosine similarity over character-bigram frequency
// vectors. Strings shorter than two runes have no bigrams and score 0.
func BigramCosine(a, b string) float64 {
	freqA := bigramFreq(a)
	freqB := bigramFreq(b)

	var dot, magA, magB float64
	for bg, ca := range freqA {
		magA += float64(ca) * float64(ca)
		if cb, ok := freqB[bg]; ok {
			dot += float64(ca) * float64(cb)
		}
	}
	for _, cb := range freqB {
		magB += float64(cb) * float64(cb)
	}

	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func bigramFreq(s string) map[string]int {
	runes := []rune(s)
	freq := make(map[string]int, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		freq[string(runes[i:i+2])]++
	}
	return freq
}

// Levenshtein computes the classic edit distance (insert/delete/substitute)
// between two strings, by rune.
func Levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// normalizedLevenshtein maps edit distance into a [0,1] similarity:
// 1 - distance / max(len(a), len(b)).
func normalizedLevenshtein(a, b string) float64 {
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(Levenshtein(a, b))/float64(maxLen)
}
