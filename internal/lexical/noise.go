package lexical

import (
	"regexp"
	"strings"
)

// minNoiseTokens is the token count under which a fragment is noise.
const minNoiseTokens = 12

// noisePatterns match publication mastheads, legal notices and contact
// details in normalized text.
var noisePatterns = compileAll(
	`gaceta politecnica`,
	`organo informativo`,
	`directorio`,
	`queda estrictamente prohibida`,
	`numero extraordinario`,
	`impreso en`,
	`talleres`,
	`edicion:`,
	`licitud`,
	`permiso de circulacion`,
	`coordinacion editorial`,
	`colaboradores`,
	`codigo de etica`,
	`principios y valores`,
	`\b\d+\s*de\s*\d+\b`,
	`www\.`,
	`http://`,
	`@`,
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// IsNoise reports whether a fragment is editorial boilerplate that must
// never be retrieved.
func IsNoise(text string) bool {
	t := Normalize(text)
	if len(strings.Fields(t)) < minNoiseTokens {
		return true
	}
	for i := 0; i < len(t); i++ {
		if t[i] > 127 {
			return true
		}
	}
	for _, re := range noisePatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}
