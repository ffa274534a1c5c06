package llm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Length bounds for an accepted cleaned answer, in bytes.
const (
	MinAnswerLen = 20
	MaxAnswerLen = 800
)

var (
	numberedRe  = regexp.MustCompile(`(?m)^\s*\d+[.)]\s*`)
	bulletRe    = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
	blankLineRe = regexp.MustCompile(`\n\s*\n`)

	fillerRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Como asistente académico,?\s*`),
		regexp.MustCompile(`(?i)En resumen,?\s*`),
		regexp.MustCompile(`(?i)Para concluir,?\s*`),
		regexp.MustCompile(`(?i)Espero que esto ayude\.?\s*`),
		regexp.MustCompile(`(?i)Si tienes más preguntas\.?\s*`),
		regexp.MustCompile(`(?i)Basado en el contexto proporcionado,?\s*`),
	}
)

// Clean flattens a model answer into a single paragraph: list markers
// and filler phrases are removed and terminal punctuation is ensured.
func Clean(answer string) string {
	if answer == "" {
		return answer
	}

	s := numberedRe.ReplaceAllString(answer, "")
	s = bulletRe.ReplaceAllString(s, "")
	s = blankLineRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = whitespaceRe.ReplaceAllString(s, " ")

	for _, re := range fillerRes {
		s = re.ReplaceAllString(s, "")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if last, _ := utf8.DecodeLastRuneInString(s); !strings.ContainsRune(".!?]", last) {
		s += "."
	}
	return s
}

// Valid reports whether a cleaned answer has an acceptable length in
// characters.
func Valid(answer string) bool {
	n := utf8.RuneCountInString(answer)
	return n >= MinAnswerLen && n <= MaxAnswerLen
}

// Finalize returns the cleaned answer when it is valid and the raw answer
// otherwise.
func Finalize(raw string) string {
	if cleaned := Clean(raw); Valid(cleaned) {
		return cleaned
	}
	return raw
}
