// Package intent routes student and professor questions either to a
// record-backed direct answer or to the generative path.
//
// Classification runs in three stages: a fuzzy glossary match when the
// question asks for a definition, the ordered direct pattern table, and
// finally the complex fallback.
package intent

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind is the routing decision for a question.
type Kind string

const (
	// KindDirect questions are answered from the user record or the glossary.
	KindDirect Kind = "direct"
	// KindComplex questions go through retrieval and generation.
	KindComplex Kind = "complex"
)

// DefinitionPrefix starts every glossary subtype.
const DefinitionPrefix = "definicion_"

// Classification is the result of Classify. Subtype is empty for complex
// questions.
type Classification struct {
	Kind    Kind   `json:"kind"`
	Subtype string `json:"subtype,omitempty"`
}

// IsDirect reports whether the question can be answered without generation.
func (c Classification) IsDirect() bool { return c.Kind == KindDirect }

// IsDefinition reports whether subtype names a glossary entry.
func IsDefinition(subtype string) bool {
	return strings.HasPrefix(subtype, DefinitionPrefix)
}

// DefinitionTerm returns the glossary term named by a definition subtype.
func DefinitionTerm(subtype string) string {
	return strings.TrimPrefix(subtype, DefinitionPrefix)
}

// definitionCues mark questions that ask what something means.
var definitionCues = []string{
	"que es", "que son", "definicion", "significa",
	"significado", "cual es", "cuales son", "explica",
}

type intentPatterns struct {
	subtype  string
	patterns []string
}

type compiledIntent struct {
	subtype  string
	patterns []*regexp.Regexp
}

// Classifier is immutable after construction and safe for concurrent use.
type Classifier struct {
	direct  []compiledIntent
	complex []*regexp.Regexp
	terms   []glossaryTerm
}

// glossaryTerm caches the normalized forms used by the fuzzy matcher.
type glossaryTerm struct {
	name  string
	norm  string
	words []string
}

// NewClassifier compiles the direct table followed by one pattern group per
// glossary term.
func NewClassifier() *Classifier {
	c := &Classifier{
		direct: make([]compiledIntent, 0, len(directTable)+len(Glossary)),
		terms:  make([]glossaryTerm, 0, len(Glossary)),
	}
	for _, in := range directTable {
		c.direct = append(c.direct, compiledIntent{subtype: in.subtype, patterns: compileAll(in.patterns)})
	}
	for _, t := range Glossary {
		n := normalize(t.Name)
		c.direct = append(c.direct, compiledIntent{
			subtype:  DefinitionPrefix + t.Name,
			patterns: compileAll(definitionPatterns(n)),
		})
		var words []string
		for _, w := range strings.Fields(n) {
			if len(w) > 1 {
				words = append(words, w)
			}
		}
		c.terms = append(c.terms, glossaryTerm{name: t.Name, norm: n, words: words})
	}
	c.complex = compileAll(complexPatterns)
	return c
}

func definitionPatterns(term string) []string {
	t := strings.ReplaceAll(regexp.QuoteMeta(term), " ", `\s+`)
	return []string{
		"que.*es.*" + t,
		"que.*son.*" + t,
		"definicion.*" + t,
		"significado.*" + t,
		"cual.*es.*" + t,
		"^" + t + "$",
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Classify routes a question. It never fails: anything unmatched is complex.
func (c *Classifier) Classify(question string) Classification {
	q := normalize(question)

	if hasDefinitionCue(q) {
		if term, ok := c.matchGlossary(q); ok {
			return Classification{Kind: KindDirect, Subtype: DefinitionPrefix + term}
		}
	}

	for _, in := range c.direct {
		for _, re := range in.patterns {
			if re.MatchString(q) {
				return Classification{Kind: KindDirect, Subtype: in.subtype}
			}
		}
	}

	// Explicit complex patterns and no match at all end the same way.
	return Classification{Kind: KindComplex}
}

// IsComplexTopic reports whether the question mentions a regulation topic
// that always needs the generative path.
func (c *Classifier) IsComplexTopic(question string) bool {
	q := normalize(question)
	for _, re := range c.complex {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// DirectSubtypes lists every subtype the classifier can return, in match order.
func (c *Classifier) DirectSubtypes() []string {
	out := make([]string, len(c.direct))
	for i, in := range c.direct {
		out[i] = in.subtype
	}
	return out
}

func hasDefinitionCue(q string) bool {
	for _, cue := range definitionCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

// stripMarks removes combining marks after canonical decomposition.
func stripMarks() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// normalize lower-cases s and strips accents. Punctuation such as "¿" is kept.
func normalize(s string) string {
	out, _, err := transform.String(stripMarks(), strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
