package search

import (
	"sort"
	"strings"

	"github.com/Aman-CERP/saesagent/internal/lexical"
	"github.com/Aman-CERP/saesagent/internal/store"
)

// Scoring constants.
const (
	// VectorBase is the score of the nearest vector hit.
	VectorBase = 2.0
	// RankDecay shrinks vector scores by rank: VectorBase/(1+rank*RankDecay).
	RankDecay = 0.3
	// LexicalWeight scales lexical scores during fusion.
	LexicalWeight = 1.5
	// ArticleBoost multiplies lexical scores of fragments that open with an article.
	ArticleBoost = 3.0
	// articlePrefixRunes is how much of a fragment is checked for "articulo".
	articlePrefixRunes = 100
)

// Candidate is a fragment scored by one or both channels.
type Candidate struct {
	Index   int
	Vector  float64
	Lexical float64
	Score   float64
}

// vectorScores ranks hits that fall inside the corpus. Rank counts every
// in-range hit, including noise fragments that are then skipped.
func vectorScores(hits []store.VectorHit, lex *lexical.Index) map[int]float64 {
	scores := make(map[int]float64, len(hits))
	rank := 0
	for _, h := range hits {
		if h.Index < 0 || h.Index >= lex.Len() {
			continue
		}
		if !lex.IsNoise(h.Index) {
			scores[h.Index] += VectorBase / (1 + float64(rank)*RankDecay)
		}
		rank++
	}
	return scores
}

// lexicalScores counts question lemmas per candidate fragment, boosting
// fragments whose opening mentions an article.
func lexicalScores(lemmas map[string]struct{}, lex *lexical.Index, text func(int) string) map[int]float64 {
	candidates := make(map[int]struct{})
	for l := range lemmas {
		for _, i := range lex.Postings(l) {
			candidates[i] = struct{}{}
		}
	}

	scores := make(map[int]float64, len(candidates))
	for i := range candidates {
		if lex.IsNoise(i) {
			continue
		}
		matches := 0
		for l := range lemmas {
			if lex.Has(i, l) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		bonus := 1.0
		if opensWithArticle(text(i)) {
			bonus = ArticleBoost
		}
		scores[i] = float64(matches) * bonus
	}
	return scores
}

func opensWithArticle(text string) bool {
	r := []rune(text)
	if len(r) > articlePrefixRunes {
		r = r[:articlePrefixRunes]
	}
	return strings.Contains(lexical.Normalize(string(r)), "articulo")
}

// Fuse combines both channels and returns candidates sorted by fused
// score, then lexical score, then fragment index.
func Fuse(vector, lexicalScores map[int]float64) []Candidate {
	merged := make(map[int]*Candidate, len(vector)+len(lexicalScores))
	get := func(i int) *Candidate {
		c, ok := merged[i]
		if !ok {
			c = &Candidate{Index: i}
			merged[i] = c
		}
		return c
	}
	for i, s := range vector {
		get(i).Vector = s
	}
	for i, s := range lexicalScores {
		get(i).Lexical = s
	}

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		c.Score = c.Vector + LexicalWeight*c.Lexical
		if c.Score > 0 {
			out = append(out, *c)
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		if out[a].Lexical != out[b].Lexical {
			return out[a].Lexical > out[b].Lexical
		}
		return out[a].Index < out[b].Index
	})
	return out
}
