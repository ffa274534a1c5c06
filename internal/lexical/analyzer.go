package lexical

import (
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/es"
	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/spanish"
)

// minTokenLen is the shortest token or stem that survives analysis.
const minTokenLen = 3

// extraStopWords are institutional filler words not in the Snowball list.
var extraStopWords = []string{"segun", "sera", "son", "ser", "fue", "eran", "mas"}

// Analyzer turns Spanish text into lemma lists. It is safe for concurrent use.
type Analyzer struct {
	stop map[string]struct{}
}

// NewAnalyzer loads the Spanish stop-word list shipped with bleve, folded
// the same way as the text it filters.
func NewAnalyzer() (*Analyzer, error) {
	tm := analysis.NewTokenMap()
	if err := tm.LoadBytes(es.SpanishStopWords); err != nil {
		return nil, err
	}

	stop := make(map[string]struct{}, len(tm)+len(extraStopWords))
	for w := range tm {
		if f := Normalize(w); f != "" {
			stop[f] = struct{}{}
		}
	}
	for _, w := range extraStopWords {
		stop[w] = struct{}{}
	}
	return &Analyzer{stop: stop}, nil
}

// IsStopWord reports whether the folded word w is filtered out.
func (a *Analyzer) IsStopWord(w string) bool {
	_, ok := a.stop[w]
	return ok
}

// Tokens returns the folded alphabetic tokens of text longer than two
// letters that are not stop words, in order of appearance.
func (a *Analyzer) Tokens(text string) []string {
	folded := Normalize(text)
	var out []string
	start := -1
	for i := 0; i <= len(folded); i++ {
		isAlpha := i < len(folded) && folded[i] >= 'a' && folded[i] <= 'z'
		if isAlpha {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tok := folded[start:i]
			start = -1
			if len(tok) < minTokenLen || a.IsStopWord(tok) {
				continue
			}
			out = append(out, tok)
		}
	}
	return out
}

// Lemmas returns the stems of Tokens(text). Duplicates are kept.
func (a *Analyzer) Lemmas(text string) []string {
	toks := a.Tokens(text)
	out := toks[:0]
	for _, tok := range toks {
		if s := Stem(tok); len(s) >= minTokenLen {
			out = append(out, s)
		}
	}
	return out
}

// LemmaSet returns the distinct lemmas of text.
func (a *Analyzer) LemmaSet(text string) map[string]struct{} {
	lemmas := a.Lemmas(text)
	set := make(map[string]struct{}, len(lemmas))
	for _, l := range lemmas {
		set[l] = struct{}{}
	}
	return set
}

// Stem reduces a single folded word with the Snowball Spanish stemmer.
func Stem(word string) string {
	env := snowballstem.NewEnv(word)
	spanish.Stem(env)
	return env.Current()
}
