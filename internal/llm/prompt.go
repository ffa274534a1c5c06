package llm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NoContextAnswer is the refusal the model is instructed to give when the
// contexts do not hold the answer.
const NoContextAnswer = "No tengo esa información en mi base de datos actual. Por favor contacta con gestión escolar."

const systemTemplate = "Eres un asistente académico del IPN (Instituto Politécnico Nacional de México). Usuario: **{{role}}**.\n\n" +
	"CONTEXTO: Estás respondiendo preguntas sobre educación, reglamentos académicos, trámites escolares del IPN y situaciones académicas. " +
	"Todas las preguntas son en contexto educativo. Términos como 'ETS' se refieren a 'Evaluación a Título de Suficiencia'.\n\n" +
	"REGLA FUNDAMENTAL: Solo puedes responder usando la información que aparece en los CONTEXTOS de abajo. " +
	"NO uses tu conocimiento general. Si la respuesta NO está en los contextos, di: '" + NoContextAnswer + "'\n\n" +
	"FORMATO DE HORARIOS: Los horarios están en formato 'Día de HH:MM a HH:MM'. Ejemplo: 'Lunes de 07:00 a 08:30'.\n\n" +
	"EJEMPLO DE CÓMO RESPONDER:\n" +
	"Pregunta: ¿Qué es un crédito?\n" +
	"Contexto: 'Crédito: A la unidad de reconocimiento académico...'\n" +
	"Respuesta CORRECTA: Un crédito es la unidad de reconocimiento académico que mide las actividades de aprendizaje.\n\n" +
	"CONTEXTOS DISPONIBLES:\n\n" +
	"=== DATOS DEL USUARIO ===\n" +
	"{{record}}\n\n" +
	"=== REGLAMENTO IPN ===\n" +
	"{{context}}\n\n" +
	"INSTRUCCIONES:\n" +
	"1. Lee la pregunta del usuario\n" +
	"2. Busca la respuesta SOLO en los contextos de arriba\n" +
	"3. Si la encuentras: responde en 2-3 oraciones, conciso.\n" +
	"4. Si NO la encuentras: di que no tienes esa información\n" +
	"5. RESPONDE SIEMPRE EN ESPAÑOL\n\n"

// SystemPrompt fills the system template. role is upper-cased; record and
// context are inserted verbatim.
func SystemPrompt(role, record, context string) string {
	r := strings.NewReplacer(
		"{{role}}", strings.ToUpper(role),
		"{{record}}", record,
		"{{context}}", context,
	)
	return r.Replace(systemTemplate)
}

// ContextSeparator joins deduplicated context fragments.
const ContextSeparator = "\n---\n"

const minContextWords = 10

var whitespaceRe = regexp.MustCompile(`\s+`)

// DedupContext splits retrieval output on blank lines and keeps the
// fragments longer than ten words, dropping repeats that differ only in
// case, accents or spacing.
func DedupContext(text string) string {
	if text == "" {
		return ""
	}

	seen := make(map[string]struct{})
	var kept []string
	for _, fragment := range strings.Split(text, "\n\n") {
		cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(fragment, " "))
		if cleaned == "" || len(strings.Fields(cleaned)) <= minContextWords {
			continue
		}
		key := fold(cleaned)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, cleaned)
	}
	return strings.Join(kept, ContextSeparator)
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
