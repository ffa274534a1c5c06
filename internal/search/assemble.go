package search

import (
	"strings"
	"unicode/utf8"

	"github.com/Aman-CERP/saesagent/internal/lexical"
)

const (
	// minFragmentChars drops selected fragments shorter than this once normalized.
	minFragmentChars = 50
	// minContextChars is the shortest context worth returning.
	minContextChars = 20
	// Separator joins fragments in the assembled context.
	Separator = "\n\n"
)

// Assemble cleans, deduplicates and joins fragment texts, truncating the
// result to maxChars runes. It returns "" when too little survives.
func Assemble(texts []string, maxChars int) string {
	seen := make(map[string]struct{}, len(texts))
	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		clean := lexical.CollapseSpace(t)
		key := lexical.Normalize(clean)
		if _, dup := seen[key]; dup || len(key) < minFragmentChars {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, clean)
	}

	out := truncateRunes(strings.Join(kept, Separator), maxChars)
	if utf8.RuneCountInString(strings.TrimSpace(out)) < minContextChars {
		return ""
	}
	return out
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
