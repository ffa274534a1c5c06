package agent

import (
	"math"
	"time"
)

// AnswerKind says how a response was produced.
type AnswerKind string

const (
	KindDirect AnswerKind = "direct"
	KindLLM    AnswerKind = "llm"
	KindCached AnswerKind = "cached"
	// KindError marks a request that produced no answer at all.
	KindError AnswerKind = "error"
)

// Request is one question from a user.
type Request struct {
	Query    string `json:"query"`
	UserID   string `json:"id_usuario"`
	UserType string `json:"tipo_usuario"`
	// ForceReasoning skips classification and always generates.
	ForceReasoning bool `json:"-"`
}

// Response is the answer returned to the client.
type Response struct {
	Response  string     `json:"response"`
	TimeMS    float64    `json:"tiempo_ms"`
	Kind      AnswerKind `json:"tipo_respuesta"`
	FromCache bool       `json:"from_cache"`
	RequestID string     `json:"request_id"`
	Error     string     `json:"error,omitempty"`
}

// Degraded answer texts.
const (
	GenerationFailedPrefix = "Lo siento, hubo un error al consultar mi cerebro digital: "
	NoGeneratorAnswer      = "Error interno: el generador de texto no está configurado. Verifica la API key."
	EmptyGenerationAnswer  = "Hubo un problema de conexión con el asistente."
	TimeoutAnswer          = "Tiempo de espera agotado."
	TimeoutError           = "timeout"
)

// negations mark a direct answer that only says the data is missing; such
// answers are regenerated with the full context instead.
var negations = []string{"No tienes", "Sin comentarios", "No se pudo", "No cuentas"}

// millis rounds d to milliseconds with two decimals.
func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
