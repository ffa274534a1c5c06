package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/internal/config"
	"github.com/Aman-CERP/saesagent/internal/embed"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/llm"
	"github.com/Aman-CERP/saesagent/internal/records"
	"github.com/Aman-CERP/saesagent/internal/search"
	"github.com/Aman-CERP/saesagent/internal/telemetry"
)

// appOptions selects which optional collaborators a command needs.
type appOptions struct {
	generator bool
	records   bool
	telemetry bool
}

// app is the wired question-answering stack shared by the commands.
type app struct {
	cfg      *config.Config
	embedder embed.Embedder
	provider records.Provider
	metrics  *telemetry.Metrics
	svc      *agent.Service
}

// newApp wires config into a Service. Only a missing corpus or index with
// retrieval.required set is fatal; other unavailable collaborators degrade
// the answers and are logged.
func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, embedder: emb, provider: records.NoopProvider{}}

	deps := agent.Dependencies{Provider: a.provider}

	retriever, err := openRetriever(cfg, emb)
	if err != nil {
		a.Close()
		return nil, err
	}
	if retriever != nil {
		deps.Searcher = retriever
	}

	if opts.records {
		a.provider = openRecords(ctx, cfg)
		deps.Provider = a.provider
	}
	if opts.generator {
		gen, err := newGenerator(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Generator = gen
	}
	if opts.telemetry {
		a.metrics = openTelemetry(ctx, cfg)
		deps.Metrics = a.metrics
	}

	svc, err := agent.New(agentConfig(cfg), deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

// Close releases everything newApp opened.
func (a *app) Close() {
	if a.svc != nil {
		a.svc.Close()
	}
	if err := a.metrics.Close(); err != nil {
		slog.Warn("telemetry_close_failed", slog.String("error", err.Error()))
	}
	if a.provider != nil {
		_ = a.provider.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}

// reloadRetrieval rebuilds the retriever after the corpus or index changed
// on disk. A failed reload keeps the current retriever.
func (a *app) reloadRetrieval(_ context.Context, changed []string) {
	r, err := search.Open(a.cfg.Retrieval.CorpusPath, a.cfg.Retrieval.IndexPath, a.embedder)
	if err != nil {
		slog.Error("corpus_reload_failed",
			slog.String("error", err.Error()),
			slog.String("code", saeserrors.GetCode(err)))
		return
	}
	a.svc.SetSearcher(r)
	slog.Info("corpus_reloaded", slog.Any("changed", changed), slog.Int("fragments", r.Corpus().Len()))
}

func agentConfig(cfg *config.Config) agent.Config {
	return agent.Config{
		UsersSize:     cfg.Cache.UsersSize,
		UsersTTL:      cfg.Cache.UsersTTL,
		AnswersSize:   cfg.Cache.AnswersSize,
		AnswersTTL:    cfg.Cache.AnswersTTL,
		ContextTopK:   cfg.Retrieval.ContextTopK,
		KVector:       cfg.Retrieval.KVector,
		MaxChars:      cfg.Retrieval.MaxChars,
		JobTimeout:    cfg.Queue.JobTimeout,
		CallerTimeout: cfg.Queue.CallerTimeout,
	}
}

// searchOptions are the retrieval settings for direct regulation searches.
func searchOptions(cfg *config.Config) search.Options {
	return search.Options{
		KVector:  cfg.Retrieval.KVector,
		TopMerge: cfg.Retrieval.TopMerge,
		MaxChars: cfg.Retrieval.MaxChars,
	}
}

func newEmbedder(cfg *config.Config) (embed.Embedder, error) {
	return embed.NewEmbedder(embed.Options{
		Provider:   strings.ToLower(cfg.Embeddings.Provider),
		Model:      cfg.Embeddings.Model,
		Host:       cfg.Embeddings.Host,
		APIKey:     cfg.Embeddings.APIKey,
		Dimensions: cfg.Embeddings.Dimensions,
		CacheSize:  cfg.Embeddings.CacheSize,
	})
}

func openRetriever(cfg *config.Config, emb embed.Embedder) (*search.Retriever, error) {
	r, err := search.Open(cfg.Retrieval.CorpusPath, cfg.Retrieval.IndexPath, emb)
	if err == nil {
		return r, nil
	}
	if cfg.Retrieval.Required {
		return nil, err
	}
	slog.Warn("retrieval_unavailable",
		slog.String("error", err.Error()),
		slog.String("code", saeserrors.GetCode(err)),
		slog.String("corpus", cfg.Retrieval.CorpusPath),
		slog.String("index", cfg.Retrieval.IndexPath))
	return nil, nil
}

func openRecords(ctx context.Context, cfg *config.Config) records.Provider {
	rc := cfg.Records
	var (
		p   records.Provider
		err error
	)
	switch strings.ToLower(rc.Provider) {
	case config.RecordsMySQL:
		p, err = records.OpenMySQL(ctx, records.SQLConfig{
			DSN:          rc.DSN,
			Host:         rc.Host,
			Port:         rc.Port,
			User:         rc.User,
			Password:     rc.Password,
			Name:         rc.Name,
			MaxOpenConns: rc.MaxOpenConns,
		})
	case config.RecordsFile:
		p, err = records.LoadFileProvider(rc.FixturesPath)
	default:
		return records.NoopProvider{}
	}
	if err != nil {
		slog.Warn("records_unavailable",
			slog.String("provider", rc.Provider),
			slog.String("error", err.Error()))
		return records.NoopProvider{}
	}
	slog.Info("records_opened", slog.String("provider", rc.Provider))
	return p
}

// newGenerator returns a nil Generator when no API key is configured;
// the service then answers generative questions with an error text.
func newGenerator(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	gc := cfg.Generation
	if gc.APIKey == "" {
		slog.Warn("generation_disabled",
			slog.String("provider", gc.Provider),
			slog.String("reason", "no api key"))
		return nil, nil
	}
	return llm.New(ctx, llm.Config{
		Provider: llm.ProviderType(strings.ToLower(gc.Provider)),
		Model:    gc.Model,
		BaseURL:  gc.BaseURL,
		APIKey:   gc.APIKey,
		Timeout:  gc.Timeout,
		Guard: llm.GuardConfig{
			RequestsPerMinute: gc.RequestsPerMinute,
			MaxRetries:        gc.MaxRetries,
		},
	})
}

func openTelemetry(ctx context.Context, cfg *config.Config) *telemetry.Metrics {
	if !cfg.Telemetry.Enabled {
		return nil
	}
	st, err := telemetry.OpenSQLiteStore(ctx, cfg.Telemetry.DBPath)
	if err != nil {
		slog.Warn("telemetry_unavailable", slog.String("error", err.Error()))
		return nil
	}
	return telemetry.New(st, telemetry.DefaultConfig())
}
