package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// =============================================================================
// Prompt
// =============================================================================

func TestSystemPrompt_FillsPlaceholders(t *testing.T) {
	// Given a role, a record rendering and a retrieval context
	// When the system prompt is built
	p := SystemPrompt("profesor", "Nombre: Ana", "Artículo 41. Promedio mínimo.")

	// Then each part lands in its section and no placeholder remains
	assert.Contains(t, p, "Usuario: **PROFESOR**")
	assert.Contains(t, p, "=== DATOS DEL USUARIO ===\nNombre: Ana\n\n")
	assert.Contains(t, p, "=== REGLAMENTO IPN ===\nArtículo 41. Promedio mínimo.\n\n")
	assert.Contains(t, p, NoContextAnswer)
	assert.NotContains(t, p, "{{")
}

func TestDedupContext(t *testing.T) {
	long := "El alumno deberá obtener un promedio mínimo de seis en cada unidad de aprendizaje."
	longFolded := "EL ALUMNO DEBERA OBTENER UN   PROMEDIO MINIMO DE SEIS EN CADA UNIDAD DE APRENDIZAJE."
	other := "La reinscripción se realizará en las fechas que establezca el calendario académico vigente."

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"short fragments dropped", "Artículo 41.\n\nDiez palabras o menos no pasan el filtro de nada.", ""},
		{"keeps long fragment", long, long},
		{"folded duplicate dropped", long + "\n\n" + longFolded + "\n\n" + other, long + ContextSeparator + other},
		{"inner whitespace collapsed", "El  alumno\ndeberá obtener un promedio mínimo de seis en cada unidad de aprendizaje.", long},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupContext(tt.in))
		})
	}
}

// =============================================================================
// Cleanup
// =============================================================================

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"numbered list", "1. Primero\n2) Segundo", "Primero Segundo."},
		{"bullets and filler", "Como asistente académico, el promedio mínimo es seis\n\n- Se requiere acreditar", "el promedio mínimo es seis Se requiere acreditar."},
		{"filler is case-insensitive", "EN RESUMEN, el crédito vale", "el crédito vale."},
		{"closing filler", "El ETS es una evaluación. Espero que esto ayude.", "El ETS es una evaluación."},
		{"question kept", "¿Tienes dudas?", "¿Tienes dudas?"},
		{"bracket kept", "Ver [Artículo 41]", "Ver [Artículo 41]"},
		{"only filler", "En resumen, ", ""},
		{"whitespace collapsed", "Tu   promedio\tes 8.5", "Tu promedio es 8.5."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(strings.Repeat("a", MinAnswerLen-1)))
	assert.True(t, Valid(strings.Repeat("a", MinAnswerLen)))
	assert.True(t, Valid(strings.Repeat("a", MaxAnswerLen)))
	assert.False(t, Valid(strings.Repeat("a", MaxAnswerLen+1)))

	// Length is counted in characters, not bytes.
	accented := strings.Repeat("ó", MaxAnswerLen)
	assert.Greater(t, len(accented), MaxAnswerLen)
	assert.True(t, Valid(accented))
	assert.False(t, Valid(accented+"ó"))
}

func TestFinalize_AccentedAnswerNearLimit(t *testing.T) {
	// Given: a list-formatted answer of about 780 characters with accents
	raw := "1. " + strings.Repeat("Información académica ", 35) + "\n- fin"
	cleaned := Clean(raw)
	require.Less(t, utf8.RuneCountInString(cleaned), MaxAnswerLen)
	require.Greater(t, len(cleaned), MaxAnswerLen, "more bytes than characters")

	// When/Then: the cleaned text is used, not the raw one
	got := Finalize(raw)
	assert.Equal(t, cleaned, got)
	assert.False(t, strings.HasPrefix(got, "1. "))
}

func TestFinalize(t *testing.T) {
	t.Run("valid cleaned answer wins", func(t *testing.T) {
		raw := "1. El promedio mínimo aprobatorio es seis"
		assert.Equal(t, "El promedio mínimo aprobatorio es seis.", Finalize(raw))
	})

	t.Run("too short falls back to raw", func(t *testing.T) {
		assert.Equal(t, "- Sí", Finalize("- Sí"))
	})

	t.Run("too long falls back to raw", func(t *testing.T) {
		raw := "- " + strings.Repeat("palabra ", 120)
		assert.Equal(t, raw, Finalize(raw))
	})
}

// =============================================================================
// OpenAI-compatible generator
// =============================================================================

func chatReply(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"model":"grok-3-mini","choices":[{"message":{"role":"assistant","content":` +
		mustJSON(content) + `},"finish_reason":"stop"}]}`))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestGenerator(t *testing.T, url string, guard GuardConfig) *OpenAIGenerator {
	t.Helper()
	g, err := NewOpenAIGenerator(OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: url,
		Timeout: 5 * time.Second,
		Guard:   guard,
	})
	require.NoError(t, err)
	g.guard.retry.InitialDelay = time.Millisecond
	g.guard.retry.MaxDelay = 5 * time.Millisecond
	return g
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	// Given a chat completions endpoint that echoes a padded answer
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		chatReply(w, "  El promedio mínimo es seis.  ")
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL+"/", GuardConfig{})

	// When a generation is requested
	out, err := g.Generate(context.Background(), "sistema", "¿Cuál es el promedio mínimo?")

	// Then the system and user messages are sent and the text is trimmed
	require.NoError(t, err)
	assert.Equal(t, "El promedio mínimo es seis.", out.Text)
	assert.Equal(t, DefaultXAIModel, out.Model)
	assert.Equal(t, DefaultXAIModel, got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "sistema"}, got.Messages[0])
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "xai/grok-3-mini", g.Name())
}

func TestOpenAIGenerator_RetriesServerErrors(t *testing.T) {
	// Given a backend that fails once with 503
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		chatReply(w, "Listo.")
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{MaxRetries: 2})

	// When generating
	out, err := g.Generate(context.Background(), "s", "u")

	// Then the second attempt succeeds
	require.NoError(t, err)
	assert.Equal(t, "Listo.", out.Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIGenerator_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{MaxRetries: 2})

	_, err := g.Generate(context.Background(), "s", "u")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, saeserrors.ErrCodeGenerationFailed, saeserrors.GetCode(err))
	assert.False(t, saeserrors.IsRetryable(err))
	assert.Contains(t, err.Error(), "model not found")
}

func TestOpenAIGenerator_RateLimitedResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{MaxRetries: 1})

	_, err := g.Generate(context.Background(), "s", "u")

	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, saeserrors.ErrCodeRateLimited, saeserrors.GetCode(err))
}

func TestOpenAIGenerator_CircuitOpens(t *testing.T) {
	// Given a backend that always fails and a breaker that opens after two failures
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{FailureThreshold: 2, ResetTimeout: time.Hour})

	// When three generations are attempted
	for range 2 {
		_, err := g.Generate(context.Background(), "s", "u")
		require.Error(t, err)
	}
	_, err := g.Generate(context.Background(), "s", "u")

	// Then the third fails fast without reaching the backend
	require.Error(t, err)
	assert.ErrorIs(t, err, saeserrors.ErrCircuitOpen)
	assert.Equal(t, saeserrors.ErrCodeGenerationFailed, saeserrors.GetCode(err))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "open", g.CircuitState())
}

func TestOpenAIGenerator_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{MaxRetries: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, "s", "u")

	require.Error(t, err)
	assert.Equal(t, saeserrors.ErrCodeGenerationTimeout, saeserrors.GetCode(err))
}

func TestOpenAIGenerator_Throttle(t *testing.T) {
	// Given a limit of one request per minute
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chatReply(w, "ok")
	}))
	defer srv.Close()

	g := newTestGenerator(t, srv.URL, GuardConfig{RequestsPerMinute: 1})

	_, err := g.Generate(context.Background(), "s", "u")
	require.NoError(t, err)

	// When a second call cannot wait for the next token
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, "s", "u")

	// Then it is rejected as rate limited
	require.Error(t, err)
	assert.Equal(t, saeserrors.ErrCodeRateLimited, saeserrors.GetCode(err))
}

func TestNewOpenAIGenerator_Defaults(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewOpenAIGenerator(OpenAIConfig{})
		require.Error(t, err)
		assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
	})

	t.Run("openai defaults", func(t *testing.T) {
		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", Provider: ProviderOpenAI})
		require.NoError(t, err)
		assert.Equal(t, "openai/"+DefaultOpenAIModel, g.Name())
		assert.Equal(t, DefaultOpenAIBaseURL, g.baseURL)
		assert.Equal(t, "closed", g.CircuitState())
	})
}

// =============================================================================
// Factory
// =============================================================================

func TestNew(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		_, err := New(context.Background(), Config{Provider: "llama"})
		require.Error(t, err)
		assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
	})

	t.Run("gemini requires a key", func(t *testing.T) {
		_, err := New(context.Background(), Config{Provider: ProviderGemini})
		require.Error(t, err)
		assert.Equal(t, saeserrors.ErrCodeConfigInvalid, saeserrors.GetCode(err))
	})

	t.Run("xai", func(t *testing.T) {
		g, err := New(context.Background(), Config{Provider: ProviderXAI, APIKey: "k", Model: "grok-3"})
		require.NoError(t, err)
		assert.IsType(t, &OpenAIGenerator{}, g)
		assert.Equal(t, "xai/grok-3", g.Name())
	})
}
