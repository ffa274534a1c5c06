// Package lexical builds the lemma-level inverted index used by the
// lexical retrieval channel.
//
// Text is folded to lower-case ASCII, split into alphabetic runs, filtered
// against the Spanish stop-word list and reduced with the Snowball Spanish
// stemmer. Stems stand in for lemmas throughout the package.
package lexical

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold decomposes compatibility characters and drops everything
// outside ASCII, so "Artículo" becomes "Articulo" and "ñ" becomes "n".
func asciiFold() transform.Transformer {
	return transform.Chain(
		norm.NFKD,
		runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })),
	)
}

// Normalize folds s to lower-case ASCII with single spaces.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	folded, _, err := transform.String(asciiFold(), s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// CollapseSpace trims s and replaces every whitespace run with one space
// without touching accents or case.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
