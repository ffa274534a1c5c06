package store

import (
	"encoding/json"
	"fmt"
	"os"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// Corpus is the ordered fragment list loaded at startup.
type Corpus struct {
	Path      string
	Fragments []Fragment
}

// LoadCorpus reads a JSON array of fragments. A missing file is fatal for
// the retrieval subsystem and carries ErrCodeCorpusMissing.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, saeserrors.New(saeserrors.ErrCodeCorpusMissing, "corpus file not found", err).
				WithDetail("path", path).
				WithSuggestion("point retrieval.corpus_path at the fragments JSON")
		}
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var fragments []Fragment
	if err := json.Unmarshal(data, &fragments); err != nil {
		return nil, saeserrors.New(saeserrors.ErrCodeCorruptIndex, "corpus is not a fragment array", err).
			WithDetail("path", path)
	}

	return &Corpus{Path: path, Fragments: fragments}, nil
}

// Len returns the number of fragments.
func (c *Corpus) Len() int {
	return len(c.Fragments)
}

// Texts returns fragment texts in corpus order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Fragments))
	for i, f := range c.Fragments {
		out[i] = f.Text
	}
	return out
}

// Text returns the text of fragment i, or "" when out of range.
func (c *Corpus) Text(i int) string {
	if i < 0 || i >= len(c.Fragments) {
		return ""
	}
	return c.Fragments[i].Text
}
