package intent

import (
	"strings"
	"unicode/utf8"
)

// Glossary match scores.
const (
	scoreExact     = 100
	scoreCleaned   = 95
	scoreAllWords  = 85
	coverageWeight = 70
	minCoverage    = 0.6
	minScore       = 60

	// maxTermLen excludes long descriptive entries from fuzzy matching.
	maxTermLen = 50
)

// ignoreWords are dropped from the question before the cleaned match.
var ignoreWords = map[string]struct{}{
	"que": {}, "es": {}, "la": {}, "el": {}, "un": {}, "una": {}, "son": {}, "los": {}, "las": {},
	"definicion": {}, "de": {}, "significa": {}, "significado": {},
	"cual": {}, "cuales": {}, "me": {}, "puedes": {}, "explicar": {},
}

// matchGlossary returns the best scoring glossary term for an already
// normalized question. Matching is by substring, so "creditos" still finds
// "credito". The first term wins ties.
func (c *Classifier) matchGlossary(q string) (string, bool) {
	var kept []string
	for _, w := range strings.FieldsFunc(q, isSeparator) {
		if _, skip := ignoreWords[w]; !skip && len(w) > 1 {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	cleaned := strings.Join(kept, " ")

	best, bestScore := "", 0.0
	for _, t := range c.terms {
		if utf8.RuneCountInString(t.name) > maxTermLen {
			continue
		}
		score := termScore(t, q, cleaned)
		if score >= minScore && score > bestScore {
			best, bestScore = t.name, score
		}
	}
	return best, best != ""
}

// termScore rates one term against the normalized question q and the
// question without ignore words.
func termScore(t glossaryTerm, q, cleaned string) float64 {
	switch {
	case strings.Contains(q, t.norm):
		return scoreExact
	case strings.Contains(cleaned, t.norm):
		return scoreCleaned
	case len(t.words) == 0:
		return 0
	}

	found := 0
	for _, w := range t.words {
		if strings.Contains(q, w) {
			found++
		}
	}
	if found == len(t.words) {
		return scoreAllWords
	}
	coverage := float64(found) / float64(len(t.words))
	if coverage >= minCoverage {
		return coverage * coverageWeight
	}
	return 0
}

// isSeparator splits on anything that is not a letter or digit, so "credito?"
// still yields "credito".
func isSeparator(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == 'ñ')
}
