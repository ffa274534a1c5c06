package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/saesagent/internal/answer"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/intent"
	"github.com/Aman-CERP/saesagent/internal/llm"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/search"
	"github.com/Aman-CERP/saesagent/internal/telemetry"
)

const (
	boleta    = "2020630001"
	emptyUser = "2020630002"
)

// fakeProvider serves two students: one enrolled, one with nothing enrolled.
type fakeProvider struct {
	delay time.Duration
	calls atomic.Int32
	fail  error
}

func (p *fakeProvider) Lookup(ctx context.Context, userType records.UserType, id string) (*records.Record, error) {
	p.calls.Add(1)
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if p.fail != nil {
		return nil, p.fail
	}
	if userType != records.Student {
		return nil, saeserrors.New(saeserrors.ErrCodeRecordNotFound, "not found", nil)
	}
	switch id {
	case boleta:
		return &records.Record{Type: records.Student, Student: &records.StudentRecord{
			Boleta: boleta,
			Name:   "Ana López",
			Career: "Ingeniería en Sistemas Computacionales",
			Enrolled: []records.EnrolledCourse{{
				Name: "Cálculo", Group: "1CV1", Shift: "Matutino", Professor: "Juan Pérez",
				Schedule: []records.Slot{{Day: "Lunes", Start: "07:00", End: "08:30"}},
			}},
		}}, nil
	case emptyUser:
		return &records.Record{Type: records.Student, Student: &records.StudentRecord{Boleta: emptyUser}}, nil
	default:
		return nil, saeserrors.New(saeserrors.ErrCodeRecordNotFound, "not found", nil)
	}
}

func (p *fakeProvider) Close() error { return nil }

// fakeGenerator answers with a fixed text and records prompts and overlap.
type fakeGenerator struct {
	text  string
	err   error
	delay time.Duration

	calls       atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	mu      sync.Mutex
	systems []string
}

func (g *fakeGenerator) Generate(ctx context.Context, system, user string) (llm.Generation, error) {
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		m := g.maxInFlight.Load()
		if n <= m || g.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	g.calls.Add(1)
	g.mu.Lock()
	g.systems = append(g.systems, system)
	g.mu.Unlock()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return llm.Generation{}, ctx.Err()
		}
	}
	if g.err != nil {
		return llm.Generation{}, g.err
	}
	return llm.Generation{Text: g.text, Model: "fake", Elapsed: 1500 * time.Microsecond}, nil
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) lastSystem() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.systems) == 0 {
		return ""
	}
	return g.systems[len(g.systems)-1]
}

// fakeSearcher returns two long fragments, one of them twice.
type fakeSearcher struct {
	calls atomic.Int32
	mu    sync.Mutex
	last  string
	fail  error
}

const (
	fragmentA = "Artículo 41. El alumno deberá obtener un promedio mínimo de seis en cada unidad de aprendizaje."
	fragmentB = "La reinscripción se realizará en las fechas que establezca el calendario académico vigente del Instituto."
)

func (s *fakeSearcher) Search(_ context.Context, question string, _ search.Options) (string, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.last = question
	s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	return fragmentA + "\n\n" + fragmentB + "\n\n" + strings.ToUpper(fragmentA), nil
}

func (s *fakeSearcher) lastQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

const generated = "1. Debes obtener un promedio mínimo de seis\n2. Consulta el reglamento"

func newService(t *testing.T, cfg Config, deps Dependencies) *Service {
	t.Helper()
	svc, err := New(cfg, deps)
	require.NoError(t, err)
	svc.Start(context.Background())
	t.Cleanup(svc.Close)
	return svc
}

func student(q string) Request {
	return Request{Query: q, UserID: boleta, UserType: "alumno"}
}

// =============================================================================
// Direct path
// =============================================================================

func TestAsk_DirectAnswerThenCached(t *testing.T) {
	// Given an enrolled student
	provider := &fakeProvider{}
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Provider: provider, Generator: gen})

	// When they ask for their schedule twice
	first := svc.Ask(context.Background(), student("cual es mi horario"))
	second := svc.Ask(context.Background(), student("cual es mi horario"))

	// Then the first is a direct answer and the second comes from cache
	assert.Equal(t, KindDirect, first.Kind)
	assert.False(t, first.FromCache)
	assert.Contains(t, first.Response, "Cálculo")
	assert.Contains(t, first.Response, "Lunes de 07:00 a 08:30")
	assert.NotEmpty(t, first.RequestID)

	assert.Equal(t, KindCached, second.Kind)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Response, second.Response)
	assert.Zero(t, second.TimeMS)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	assert.Equal(t, int32(0), gen.calls.Load())
	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestAsk_DefinitionNeedsNoRecord(t *testing.T) {
	svc := newService(t, Config{}, Dependencies{})

	resp := svc.Ask(context.Background(), Request{Query: "que es un credito", UserType: "alumno"})

	want, ok := intent.Definition("Crédito")
	require.True(t, ok)
	assert.Equal(t, KindDirect, resp.Kind)
	assert.Equal(t, want, resp.Response)
}

func TestAsk_AnswerCacheExpires(t *testing.T) {
	svc := newService(t, Config{AnswersTTL: 50 * time.Millisecond}, Dependencies{Provider: &fakeProvider{}})

	first := svc.Ask(context.Background(), student("cual es mi horario"))
	require.Equal(t, KindDirect, first.Kind)
	require.True(t, svc.Ask(context.Background(), student("cual es mi horario")).FromCache)

	assert.Eventually(t, func() bool {
		resp := svc.Ask(context.Background(), student("cual es mi horario"))
		return !resp.FromCache && resp.Kind == KindDirect && resp.Response == first.Response
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAsk_NegativeDirectAnswerFallsBackToGeneration(t *testing.T) {
	// Given a student with nothing enrolled
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Generator: gen})

	// When they ask for their schedule
	resp := svc.Ask(context.Background(), Request{Query: "cual es mi horario", UserID: emptyUser, UserType: "alumno"})

	// Then the generator answers instead
	assert.Equal(t, KindLLM, resp.Kind)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestAsk_DirectWithoutRecordFallsBackToGeneration(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Generator: gen})

	resp := svc.Ask(context.Background(), Request{Query: "cual es mi horario", UserID: "999", UserType: "alumno"})

	assert.Equal(t, KindLLM, resp.Kind)
	assert.Contains(t, gen.lastSystem(), "No se pudo obtener información académica del alumno.")
}

func TestAsk_ForceReasoningSkipsDirect(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Generator: gen})

	req := student("cual es mi horario")
	req.ForceReasoning = true
	resp := svc.Ask(context.Background(), req)

	assert.Equal(t, KindLLM, resp.Kind)
	assert.Equal(t, int32(1), gen.calls.Load())
}

// =============================================================================
// Generative path
// =============================================================================

func TestAsk_GenerativePrompt(t *testing.T) {
	// Given a searcher and a generator
	searcher := &fakeSearcher{}
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Searcher: searcher, Generator: gen})

	// When a complex question is asked
	resp := svc.Ask(context.Background(), student("que pasa si repruebo una materia dos veces"))

	// Then the answer is cleaned and the prompt carries role, record and context
	assert.Equal(t, KindLLM, resp.Kind)
	assert.Equal(t, "Debes obtener un promedio mínimo de seis Consulta el reglamento.", resp.Response)
	assert.Equal(t, 1.5, resp.TimeMS)

	system := gen.lastSystem()
	assert.Contains(t, system, "Usuario: **ALUMNO**")
	assert.Contains(t, system, "Nombre: Ana López")
	assert.Contains(t, system, fragmentA+llm.ContextSeparator+fragmentB)
	assert.NotContains(t, system, strings.ToUpper(fragmentA))

	assert.Equal(t, "que pasa si repruebo una materia dos veces estudiante requisitos académicos", searcher.lastQuery())
}

func TestAsk_GenerativeAnswersAreNotCached(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Searcher: &fakeSearcher{}, Generator: gen})

	for range 2 {
		resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
		assert.False(t, resp.FromCache)
		assert.Equal(t, KindLLM, resp.Kind)
	}
	assert.Equal(t, int32(2), gen.calls.Load())
}

func TestAsk_ContextCacheAndClear(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := newService(t, Config{}, Dependencies{Searcher: searcher, Generator: &fakeGenerator{text: generated}})

	svc.Ask(context.Background(), student("que pasa si repruebo"))
	svc.Ask(context.Background(), student("que pasa si repruebo"))
	assert.Equal(t, int32(1), searcher.calls.Load())

	// Another role is a different context entry
	svc.Ask(context.Background(), Request{Query: "que pasa si repruebo", UserType: "profesor"})
	assert.Equal(t, int32(2), searcher.calls.Load())
	assert.Equal(t, "que pasa si repruebo docente enseñanza responsabilidades", searcher.lastQuery())

	svc.ClearCaches()
	svc.Ask(context.Background(), student("que pasa si repruebo"))
	assert.Equal(t, int32(3), searcher.calls.Load())
}

func TestAsk_NoSearcherGivesEmptyContext(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Generator: gen})

	resp := svc.Ask(context.Background(), student("que pasa si repruebo"))

	assert.Equal(t, KindLLM, resp.Kind)
	assert.Contains(t, gen.lastSystem(), "=== REGLAMENTO IPN ===\n\n\n")
	assert.False(t, svc.HasSearcher())
}

func TestAsk_SearcherFailureGivesEmptyContext(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	searcher := &fakeSearcher{fail: errors.New("index gone")}
	svc := newService(t, Config{}, Dependencies{Searcher: searcher, Generator: gen})

	resp := svc.Ask(context.Background(), student("que pasa si repruebo"))

	assert.Equal(t, KindLLM, resp.Kind)
	assert.Contains(t, gen.lastSystem(), "=== REGLAMENTO IPN ===\n\n\n")
}

func TestSetSearcher(t *testing.T) {
	gen := &fakeGenerator{text: generated}
	svc := newService(t, Config{}, Dependencies{Generator: gen})

	svc.SetSearcher(&fakeSearcher{})
	require.True(t, svc.HasSearcher())
	svc.Ask(context.Background(), student("que pasa si repruebo"))
	assert.Contains(t, gen.lastSystem(), fragmentB)

	svc.SetSearcher(nil)
	assert.False(t, svc.HasSearcher())
}

func TestSearchRegulations(t *testing.T) {
	svc := newService(t, Config{}, Dependencies{})

	// Given: no searcher loaded
	_, err := svc.SearchRegulations(context.Background(), "baja temporal", search.Options{})
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)

	// When: a searcher is swapped in
	searcher := &fakeSearcher{}
	svc.SetSearcher(searcher)
	text, err := svc.SearchRegulations(context.Background(), "baja temporal", search.Options{})

	// Then: the raw text is returned without role expansion
	require.NoError(t, err)
	assert.Contains(t, text, fragmentA)
	assert.Equal(t, "baja temporal", searcher.lastQuery())
}

func TestAsk_InvalidAnswerFallsBackToRaw(t *testing.T) {
	gen := &fakeGenerator{text: "- Sí"}
	svc := newService(t, Config{}, Dependencies{Generator: gen})

	resp := svc.Ask(context.Background(), student("que pasa si repruebo"))

	assert.Equal(t, "- Sí", resp.Response)
}

// =============================================================================
// Degraded answers
// =============================================================================

func TestAsk_Degraded(t *testing.T) {
	t.Run("generation failure", func(t *testing.T) {
		svc := newService(t, Config{}, Dependencies{Generator: &fakeGenerator{err: errors.New("upstream 500")}})
		resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
		assert.Equal(t, GenerationFailedPrefix+"upstream 500", resp.Response)
		assert.Equal(t, KindLLM, resp.Kind)
	})

	t.Run("empty generation", func(t *testing.T) {
		svc := newService(t, Config{}, Dependencies{Generator: &fakeGenerator{text: "  "}})
		resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
		assert.Equal(t, EmptyGenerationAnswer, resp.Response)
	})

	t.Run("no generator", func(t *testing.T) {
		svc := newService(t, Config{}, Dependencies{})
		resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
		assert.Equal(t, NoGeneratorAnswer, resp.Response)
	})

	t.Run("caller timeout", func(t *testing.T) {
		gen := &fakeGenerator{text: generated, delay: time.Second}
		svc := newService(t, Config{CallerTimeout: 20 * time.Millisecond}, Dependencies{Generator: gen})
		resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
		assert.Equal(t, TimeoutAnswer, resp.Response)
		assert.Equal(t, TimeoutError, resp.Error)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("record lookup error means no record", func(t *testing.T) {
		gen := &fakeGenerator{text: generated}
		provider := &fakeProvider{fail: saeserrors.New(saeserrors.ErrCodeDatabase, "db down", nil)}
		svc := newService(t, Config{}, Dependencies{Provider: provider, Generator: gen})

		resp := svc.Ask(context.Background(), student("cual es mi horario"))

		assert.Equal(t, KindLLM, resp.Kind)
		svc.Ask(context.Background(), student("cual es mi promedio"))
		assert.Equal(t, int32(2), provider.calls.Load(), "failed lookups are not cached")
	})
}

// =============================================================================
// Concurrency
// =============================================================================

func TestAsk_ConcurrentGenerationsNeverOverlap(t *testing.T) {
	gen := &fakeGenerator{text: generated, delay: 5 * time.Millisecond}
	svc := newService(t, Config{}, Dependencies{Generator: gen})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := svc.Ask(context.Background(), student("que pasa si repruebo"))
			assert.Equal(t, KindLLM, resp.Kind)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), gen.calls.Load())
	assert.Equal(t, int32(1), gen.maxInFlight.Load())
}

func TestAsk_ConcurrentLookupsAreShared(t *testing.T) {
	provider := &fakeProvider{delay: 20 * time.Millisecond}
	svc := newService(t, Config{}, Dependencies{Provider: provider})

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Ask(context.Background(), student("cual es mi carrera"))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), provider.calls.Load())
}

func TestAsk_SharedLookupSurvivesFirstCallerCancel(t *testing.T) {
	// Given a slow lookup started by a caller that will go away
	provider := &fakeProvider{delay: 200 * time.Millisecond}
	svc := newService(t, Config{}, Dependencies{Provider: provider})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	go svc.Ask(firstCtx, student("cual es mi carrera"))
	require.Eventually(t, func() bool { return provider.calls.Load() == 1 }, time.Second, time.Millisecond)

	// When a second caller joins the lookup and the first one cancels
	done := make(chan Response, 1)
	go func() { done <- svc.Ask(context.Background(), student("cual es mi carrera")) }()
	time.Sleep(20 * time.Millisecond)
	cancelFirst()

	// Then the second caller still gets the record-backed answer
	select {
	case resp := <-done:
		assert.Equal(t, KindDirect, resp.Kind)
		assert.Equal(t, "Tu carrera es: Ingeniería en Sistemas Computacionales", resp.Response)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never answered")
	}
	assert.Equal(t, int32(1), provider.calls.Load())
}

// =============================================================================
// Status and telemetry
// =============================================================================

func TestStatus(t *testing.T) {
	metrics := telemetry.New(nil, telemetry.Config{})
	svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Generator: &fakeGenerator{text: generated}, Metrics: metrics})

	svc.Ask(context.Background(), student("cual es mi horario"))
	svc.Ask(context.Background(), student("cual es mi horario"))
	svc.Ask(context.Background(), student("que pasa si repruebo"))

	require.Eventually(t, func() bool { return svc.Status().TotalProcessed == 1 }, time.Second, time.Millisecond)
	st := svc.Status()
	assert.False(t, st.Retrieval)
	require.Len(t, st.Caches, 2)
	assert.Equal(t, 1, st.Caches[1].Size)
	require.NotNil(t, st.Telemetry)
	assert.Equal(t, map[string]int64{"direct": 1, "cached": 1, "llm": 1}, st.Telemetry.KindCounts)
	assert.Equal(t, []telemetry.IntentCount{{Intent: "horario", Count: 2}, {Intent: IntentComplexRegulation, Count: 1}}, st.Telemetry.TopIntents)
}

func TestAsk_RecordsComplexIntentByTopic(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"regulation topic", student("que pasa si repruebo"), IntentComplexRegulation},
		{"forced reasoning on a non-regulation question", Request{Query: "cual es mi horario", UserID: boleta, UserType: "alumno", ForceReasoning: true}, IntentComplexUnmatched},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := telemetry.New(nil, telemetry.Config{})
			svc := newService(t, Config{}, Dependencies{Provider: &fakeProvider{}, Generator: &fakeGenerator{text: generated}, Metrics: metrics})

			svc.Ask(context.Background(), tt.req)

			assert.Equal(t, []telemetry.IntentCount{{Intent: tt.want, Count: 1}}, metrics.Snapshot().TopIntents)
		})
	}
}

func TestNew_RejectsRegistryMissingBuilders(t *testing.T) {
	// Given a registry with no builders at all
	_, err := New(Config{}, Dependencies{Registry: &answer.Registry{}})

	// Then every direct intent would be unanswerable, so New refuses
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no answer builder")
}

func TestExpandForRole(t *testing.T) {
	assert.Equal(t, "q docente enseñanza responsabilidades", ExpandForRole("q", "Profesor"))
	assert.Equal(t, "q estudiante requisitos académicos", ExpandForRole("q", "alumno"))
	assert.Equal(t, "q", ExpandForRole("q", "visitante"))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, 1.5, millis(1500*time.Microsecond))
	assert.Equal(t, 0.0, millis(0))
	assert.Equal(t, 12.35, millis(12345*time.Microsecond+600*time.Nanosecond))
}
