// Package agent answers user questions. It routes each question to a
// templated direct answer or to retrieval plus generation, and keeps the
// caches and the generation queue that sit between them.
package agent

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Aman-CERP/saesagent/internal/answer"
	"github.com/Aman-CERP/saesagent/internal/cache"
	"github.com/Aman-CERP/saesagent/internal/intent"
	"github.com/Aman-CERP/saesagent/internal/llm"
	"github.com/Aman-CERP/saesagent/internal/queue"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/search"
	"github.com/Aman-CERP/saesagent/internal/telemetry"
)

// Defaults for Config.
const (
	DefaultContextCacheSize = 100
	DefaultContextTopK      = 3
	DefaultCallerTimeout    = 120 * time.Second
)

// Config tunes the service. Zero fields take the defaults.
type Config struct {
	UsersSize        int
	UsersTTL         time.Duration
	AnswersSize      int
	AnswersTTL       time.Duration
	ContextCacheSize int
	// ContextTopK is the number of fragments merged into a prompt.
	ContextTopK   int
	KVector       int
	MaxChars      int
	JobTimeout    time.Duration
	CallerTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.UsersSize <= 0 {
		c.UsersSize = cache.DefaultUsersSize
	}
	if c.UsersTTL <= 0 {
		c.UsersTTL = cache.DefaultUsersTTL
	}
	if c.AnswersSize <= 0 {
		c.AnswersSize = cache.DefaultAnswersSize
	}
	if c.AnswersTTL <= 0 {
		c.AnswersTTL = cache.DefaultAnswersTTL
	}
	if c.ContextCacheSize <= 0 {
		c.ContextCacheSize = DefaultContextCacheSize
	}
	if c.ContextTopK <= 0 {
		c.ContextTopK = DefaultContextTopK
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = queue.DefaultJobTimeout
	}
	if c.CallerTimeout <= 0 {
		c.CallerTimeout = DefaultCallerTimeout
	}
	return c
}

// Dependencies are the collaborators a Service uses. Only Classifier and
// Registry get defaults; a nil Provider knows no users, a nil Searcher
// yields an empty context and a nil Generator answers with an error text.
type Dependencies struct {
	Classifier *intent.Classifier
	Registry   *answer.Registry
	Provider   records.Provider
	Searcher   ContextSearcher
	Generator  llm.Generator
	Metrics    *telemetry.Metrics
}

// Service is the question-answering pipeline. Safe for concurrent use.
type Service struct {
	cfg        Config
	searchOpts search.Options

	classifier *intent.Classifier
	registry   *answer.Registry
	provider   records.Provider
	searcher   atomic.Pointer[searcherSlot]
	queue      *queue.Queue
	metrics    *telemetry.Metrics

	users    *cache.TTL[*records.Record]
	answers  *cache.TTL[string]
	contexts *lru.Cache[string, string]
	lookups  singleflight.Group
}

// New wires a Service. Call Start before Ask when a generator is set.
func New(cfg Config, deps Dependencies) (*Service, error) {
	cfg = cfg.withDefaults()

	s := &Service{
		cfg: cfg,
		searchOpts: search.Options{
			KVector:  cfg.KVector,
			TopMerge: cfg.ContextTopK,
			MaxChars: cfg.MaxChars,
		},
		classifier: deps.Classifier,
		registry:   deps.Registry,
		provider:   deps.Provider,
		metrics:    deps.Metrics,
		users:      cache.NewTTL[*records.Record]("users", cfg.UsersSize, cfg.UsersTTL),
		answers:    cache.NewTTL[string]("answers", cfg.AnswersSize, cfg.AnswersTTL),
	}
	if s.classifier == nil {
		s.classifier = intent.NewClassifier()
	}
	if s.registry == nil {
		s.registry = answer.NewRegistry()
	}
	if s.provider == nil {
		s.provider = records.NoopProvider{}
	}
	for _, subtype := range s.classifier.DirectSubtypes() {
		if !s.registry.Has(subtype) {
			return nil, fmt.Errorf("agent: no answer builder for intent %q", subtype)
		}
	}

	contexts, err := lru.New[string, string](cfg.ContextCacheSize)
	if err != nil {
		return nil, err
	}
	s.contexts = contexts

	if deps.Searcher != nil {
		s.searcher.Store(&searcherSlot{s: deps.Searcher})
	}
	if deps.Generator != nil {
		q, err := queue.New(deps.Generator, queue.WithJobTimeout(cfg.JobTimeout))
		if err != nil {
			return nil, err
		}
		s.queue = q
	}
	return s, nil
}

// Start launches the generation worker.
func (s *Service) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Close stops the generation worker. Pending requests fail.
func (s *Service) Close() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// SetSearcher swaps the regulation searcher, e.g. after a corpus reload.
// Cached contexts from the previous searcher are dropped.
func (s *Service) SetSearcher(searcher ContextSearcher) {
	if searcher == nil {
		s.searcher.Store(nil)
	} else {
		s.searcher.Store(&searcherSlot{s: searcher})
	}
	s.contexts.Purge()
	slog.Info("retrieval_swapped", slog.Bool("available", searcher != nil))
}

// HasSearcher reports whether regulation retrieval is available.
func (s *Service) HasSearcher() bool { return s.searcher.Load() != nil }

// Classify exposes the classifier.
func (s *Service) Classify(question string) intent.Classification {
	return s.classifier.Classify(question)
}

// Ask answers req. It never returns an error: failures become degraded
// answer texts.
func (s *Service) Ask(ctx context.Context, req Request) Response {
	start := time.Now()
	requestID := uuid.NewString()
	userType := strings.ToLower(strings.TrimSpace(req.UserType))

	cls := intent.Classification{Kind: intent.KindComplex}
	if !req.ForceReasoning {
		cls = s.classifier.Classify(req.Query)
	}

	key := cache.AnswerKey(userType, req.UserID, req.Query)
	if text, ok := s.answers.Get(key); ok {
		slog.Info("answer_cached", slog.String("request_id", requestID))
		resp := Response{Response: text, Kind: KindCached, FromCache: true, RequestID: requestID}
		s.record(req, cls, resp, start, false)
		return resp
	}

	rec := s.lookup(ctx, userType, req.UserID)

	if cls.IsDirect() {
		buildStart := time.Now()
		if text, ok := s.direct(cls.Subtype, rec); ok {
			resp := Response{
				Response:  text,
				TimeMS:    millis(time.Since(buildStart)),
				Kind:      KindDirect,
				RequestID: requestID,
			}
			s.answers.Add(key, text)
			slog.Info("answer_direct",
				slog.String("request_id", requestID),
				slog.String("intent", cls.Subtype))
			s.record(req, cls, resp, start, false)
			return resp
		}
		slog.Debug("answer_direct_downgraded",
			slog.String("request_id", requestID),
			slog.String("intent", cls.Subtype))
	}

	resp, degraded := s.generate(ctx, requestID, userType, req.Query, rec)
	s.record(req, cls, resp, start, degraded)
	return resp
}

// direct builds a templated answer. It declines when the subtype needs a
// record the user does not have, or when the answer only reports missing
// data.
func (s *Service) direct(subtype string, rec *records.Record) (string, bool) {
	if intent.IsDefinition(subtype) {
		return s.registry.Build(subtype, rec), true
	}
	if !rec.Usable() {
		return "", false
	}
	text := s.registry.Build(subtype, rec)
	for _, n := range negations {
		if strings.Contains(text, n) {
			return "", false
		}
	}
	return text, true
}

// lookup resolves the user's record through the user cache. Lookup
// failures mean "no record".
func (s *Service) lookup(ctx context.Context, userType, userID string) *records.Record {
	if userID == "" {
		return nil
	}
	ut, err := records.ParseUserType(userType)
	if err != nil {
		return nil
	}

	key := cache.UserKey(string(ut), userID)
	if rec, ok := s.users.Get(key); ok {
		return rec
	}

	v, _, _ := s.lookups.Do(key, func() (any, error) {
		if rec, ok := s.users.Get(key); ok {
			return rec, nil
		}
		// Callers that join this flight share its result, so the first
		// caller's cancellation must not fail them.
		rec, err := s.provider.Lookup(context.WithoutCancel(ctx), ut, userID)
		if err != nil {
			if records.IsNotFound(err) {
				slog.Debug("record_not_found", slog.String("user_type", string(ut)), slog.String("user_id", userID))
			} else {
				slog.Warn("record_lookup_failed",
					slog.String("user_type", string(ut)),
					slog.String("user_id", userID),
					slog.String("error", err.Error()))
			}
			return (*records.Record)(nil), nil
		}
		if rec != nil {
			s.users.AddIfAbsent(key, rec)
		}
		return rec, nil
	})
	rec, _ := v.(*records.Record)
	return rec
}

// generate answers through retrieval and the generation queue. The bool
// reports a degraded answer.
func (s *Service) generate(ctx context.Context, requestID, userType, query string, rec *records.Record) (Response, bool) {
	resp := Response{Kind: KindLLM, RequestID: requestID}
	if s.queue == nil {
		resp.Response = NoGeneratorAnswer
		return resp, true
	}

	ut := records.UserType(userType)
	if ut != records.Professor {
		ut = records.Student
	}
	system := llm.SystemPrompt(userType, records.Render(ut, rec), s.regulationContext(ctx, query, userType))

	callerCtx, cancel := context.WithTimeout(ctx, s.cfg.CallerTimeout)
	defer cancel()

	res, err := s.queue.Submit(callerCtx, system, query)
	switch {
	case err == nil:
		resp.TimeMS = millis(res.Generation.Elapsed)
		if strings.TrimSpace(res.Generation.Text) == "" {
			resp.Response = EmptyGenerationAnswer
			return resp, true
		}
		resp.Response = llm.Finalize(res.Generation.Text)
		return resp, false
	case callerCtx.Err() != nil && stderrors.Is(err, callerCtx.Err()):
		slog.Warn("answer_timeout", slog.String("request_id", requestID))
		return Response{Response: TimeoutAnswer, Kind: KindError, RequestID: requestID, Error: TimeoutError}, true
	default:
		slog.Error("generation_failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		resp.Response = GenerationFailedPrefix + err.Error()
		return resp, true
	}
}

// Telemetry intent names for questions that skip the templated path.
const (
	IntentComplexRegulation = "complex_regulation"
	IntentComplexUnmatched  = "complex_unmatched"
)

func (s *Service) record(req Request, cls intent.Classification, resp Response, start time.Time, degraded bool) {
	name := cls.Subtype
	if !cls.IsDirect() {
		name = IntentComplexUnmatched
		if s.classifier.IsComplexTopic(req.Query) {
			name = IntentComplexRegulation
		}
	}
	s.metrics.Record(telemetry.AnswerEvent{
		Question: req.Query,
		Kind:     string(resp.Kind),
		Intent:   name,
		Latency:  time.Since(start),
		Degraded: degraded,
	})
}

// ClearCaches empties the user, answer and retrieval-context caches.
func (s *Service) ClearCaches() {
	s.users.Purge()
	s.answers.Purge()
	s.contexts.Purge()
	slog.Info("caches_cleared")
}

// Status is the operational snapshot served on the status endpoint.
type Status struct {
	queue.Stats
	Caches    []cache.Stats       `json:"caches"`
	Retrieval bool                `json:"retrieval_available"`
	Telemetry *telemetry.Snapshot `json:"telemetry,omitempty"`
}

// Status snapshots the queue, caches and telemetry.
func (s *Service) Status() Status {
	st := Status{
		Caches:    []cache.Stats{s.users.Stats(), s.answers.Stats()},
		Retrieval: s.HasSearcher(),
	}
	if s.queue != nil {
		st.Stats = s.queue.Stats()
	}
	if s.metrics != nil {
		st.Telemetry = s.metrics.Snapshot()
	}
	return st
}
