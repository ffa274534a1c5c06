// Package search implements hybrid retrieval over the regulation corpus:
// a vector channel over the HNSW index and a lexical channel over the
// lemma index, fused into one deduplicated context string.
package search

import "strings"

// expansion appends Phrase to the vector query when Key occurs in the question.
type expansion struct {
	Key    string
	Phrase string
}

// DefaultExpansions bridge student wording and regulation wording.
// Order is fixed so expanded queries are reproducible.
var DefaultExpansions = []expansion{
	{"irregular", "situacion escolar alumno regular irregular acreditar asignatura articulo 79"},
	{"regular", "situacion escolar regular acreditar asignatura promedio articulo 79"},
	{"suficiencia", "titulo suficiencia extraordinario ordinario evaluacion articulo 34 35"},
	{"ets", "evaluacion titulo suficiencia examen extraordinario ordinario articulo 34 35"},
	{"espa", "evaluacion saberes previamente adquiridos acreditar unidad aprendizaje"},
	{"dictamen", "dictamen situacion escolar irregular comision consejo tecnico"},
	{"dictaminado", "dictaminado alumno situacion irregular dictamen autorizado"},
	{"reinscripcion", "reinscripcion articulo 19 20 promedio creditos reinscribirse"},
	{"baja", "baja temporal definitiva causara articulo 49 57"},
	{"promedio", "promedio calificacion minimo articulo 41 seis ocho"},
	{"credito", "credito valor academico articulo 9"},
	{"evaluacion", "evaluacion ordinaria extraordinaria articulo 31 33 34"},
	{"materias aprobadas", "acreditar aprobar kardex materias asignatura"},
	{"horario", "materias inscritas grupo turno profesor"},
	{"kardex", "kardex historial academico calificaciones materias aprobadas"},
	{"tutor", "tutor academico orientacion asesor trayectoria escolar"},
	{"movilidad", "movilidad academica intercambio convenio institucion extranjera"},
	{"servicio social", "servicio social requisito titulacion horas comunidad"},
	{"titulacion", "titulacion egreso titulo profesional tesis examen"},
}

// QueryExpander rewrites questions for the vector channel only. Lexical
// matching always sees the original question.
type QueryExpander struct {
	expansions []expansion
}

// QueryExpanderOption configures the expander.
type QueryExpanderOption func(*QueryExpander)

// WithExpansion appends a custom key/phrase pair after the defaults.
func WithExpansion(key, phrase string) QueryExpanderOption {
	return func(e *QueryExpander) {
		e.expansions = append(e.expansions, expansion{Key: strings.ToLower(key), Phrase: phrase})
	}
}

// NewQueryExpander creates an expander with DefaultExpansions.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{expansions: append([]expansion(nil), DefaultExpansions...)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand lower-cases the question and appends the phrase of every key it
// contains as a substring. Accents are left in place, so "reinscripción"
// does not trigger the "reinscripcion" key.
func (e *QueryExpander) Expand(question string) string {
	lower := strings.ToLower(question)
	var sb strings.Builder
	sb.WriteString(lower)
	for _, x := range e.expansions {
		if strings.Contains(lower, x.Key) {
			sb.WriteByte(' ')
			sb.WriteString(x.Phrase)
		}
	}
	return sb.String()
}
