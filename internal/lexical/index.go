package lexical

import (
	"sort"
)

// Stats summarizes a built index.
type Stats struct {
	Fragments  int `json:"fragments"`
	Noise      int `json:"noise"`
	Vocabulary int `json:"vocabulary"`
}

// Index maps lemmas to the fragments that contain them.
// It is immutable after Build and safe for concurrent reads.
type Index struct {
	analyzer *Analyzer
	lemmas   []map[string]struct{}
	noise    []bool
	postings map[string][]int
}

// Build analyzes every fragment text. Position i in texts is fragment i.
// Noise fragments keep an empty lemma set and never receive postings.
func Build(analyzer *Analyzer, texts []string) *Index {
	idx := &Index{
		analyzer: analyzer,
		lemmas:   make([]map[string]struct{}, len(texts)),
		noise:    make([]bool, len(texts)),
		postings: make(map[string][]int),
	}

	for i, text := range texts {
		if IsNoise(text) {
			idx.noise[i] = true
			idx.lemmas[i] = map[string]struct{}{}
			continue
		}
		set := analyzer.LemmaSet(text)
		idx.lemmas[i] = set
		for lemma := range set {
			idx.postings[lemma] = append(idx.postings[lemma], i)
		}
	}

	// Appending in fragment order already yields ascending postings.
	return idx
}

// Analyzer returns the analyzer the index was built with, so queries are
// tokenized the same way as fragments.
func (idx *Index) Analyzer() *Analyzer {
	return idx.analyzer
}

// Len returns the number of indexed fragments, noise included.
func (idx *Index) Len() int {
	return len(idx.lemmas)
}

// Postings returns the ascending fragment indices containing lemma.
// The returned slice must not be modified.
func (idx *Index) Postings(lemma string) []int {
	return idx.postings[lemma]
}

// Lemmas returns the sorted lemma set of fragment i, or nil when i is out of range.
func (idx *Index) Lemmas(i int) []string {
	if i < 0 || i >= len(idx.lemmas) {
		return nil
	}
	out := make([]string, 0, len(idx.lemmas[i]))
	for l := range idx.lemmas[i] {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Has reports whether fragment i contains lemma.
func (idx *Index) Has(i int, lemma string) bool {
	if i < 0 || i >= len(idx.lemmas) {
		return false
	}
	_, ok := idx.lemmas[i][lemma]
	return ok
}

// IsNoise reports whether fragment i was classified as noise at build time.
// Out-of-range indices are treated as noise.
func (idx *Index) IsNoise(i int) bool {
	if i < 0 || i >= len(idx.noise) {
		return true
	}
	return idx.noise[i]
}

// Stats returns fragment, noise and vocabulary counts.
func (idx *Index) Stats() Stats {
	noise := 0
	for _, n := range idx.noise {
		if n {
			noise++
		}
	}
	return Stats{Fragments: len(idx.lemmas), Noise: noise, Vocabulary: len(idx.postings)}
}
