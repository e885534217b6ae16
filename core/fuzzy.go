package core

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// defaultFuzzyMinSimilarity is the normalized edit-distance floor for
// "did you mean" suggestions. 0.6 catches one or two typos on short names
// without suggesting unrelated entries.
const defaultFuzzyMinSimilarity = 0.6

// BestMatch returns the candidate most similar to term, or false when no
// candidate clears minSimilarity (pass 0 for the default threshold).
// Similarity is 1 - levenshtein/maxLen, case-insensitive. Ties at the
// maximum score resolve to the first candidate in input order.
func BestMatch(candidates []string, term string, minSimilarity float64) (string, bool) {
	if minSimilarity <= 0 {
		minSimilarity = defaultFuzzyMinSimilarity
	}
	term = strings.TrimSpace(term)
	if term == "" || len(candidates) == 0 {
		return "", false
	}

	best := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		score := similarity(term, candidate)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < minSimilarity {
		return "", false
	}
	return best, true
}

func similarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
