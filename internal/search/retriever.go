package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/saesagent/internal/embed"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/lexical"
	"github.com/Aman-CERP/saesagent/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Default search parameters.
const (
	DefaultKVector  = 30
	DefaultTopMerge = 5
	DefaultMaxChars = 2000
)

// Options tunes a single search. Zero fields take the defaults.
type Options struct {
	KVector  int
	TopMerge int
	MaxChars int
}

// DefaultOptions returns the standard search parameters.
func DefaultOptions() Options {
	return Options{KVector: DefaultKVector, TopMerge: DefaultTopMerge, MaxChars: DefaultMaxChars}
}

func (o Options) withDefaults() Options {
	if o.KVector <= 0 {
		o.KVector = DefaultKVector
	}
	if o.TopMerge <= 0 {
		o.TopMerge = DefaultTopMerge
	}
	if o.MaxChars <= 0 {
		o.MaxChars = DefaultMaxChars
	}
	return o
}

// Hit is a ranked fragment with its channel scores.
type Hit struct {
	Candidate
	Fragment store.Fragment
}

// Retriever is immutable after construction and safe for concurrent use.
type Retriever struct {
	corpus   *store.Corpus
	lex      *lexical.Index
	vectors  store.VectorIndex
	embedder embed.Embedder
	expander *QueryExpander
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithExpander replaces the default query expander.
func WithExpander(e *QueryExpander) RetrieverOption {
	return func(r *Retriever) {
		if e != nil {
			r.expander = e
		}
	}
}

// NewRetriever wires already-loaded components together.
func NewRetriever(corpus *store.Corpus, lex *lexical.Index, vectors store.VectorIndex, embedder embed.Embedder, opts ...RetrieverOption) (*Retriever, error) {
	switch {
	case corpus == nil:
		return nil, fmt.Errorf("%w: corpus", ErrNilDependency)
	case lex == nil:
		return nil, fmt.Errorf("%w: lexical index", ErrNilDependency)
	case vectors == nil:
		return nil, fmt.Errorf("%w: vector index", ErrNilDependency)
	case embedder == nil:
		return nil, fmt.Errorf("%w: embedder", ErrNilDependency)
	}
	if lex.Len() != corpus.Len() {
		return nil, fmt.Errorf("lexical index covers %d fragments, corpus has %d", lex.Len(), corpus.Len())
	}

	r := &Retriever{
		corpus:   corpus,
		lex:      lex,
		vectors:  vectors,
		embedder: embedder,
		expander: NewQueryExpander(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Open loads the corpus and vector index from disk, builds the lemma
// index and checks that all three line up. Failures here are fatal for
// retrieval only.
func Open(corpusPath, indexPath string, embedder embed.Embedder, opts ...RetrieverOption) (*Retriever, error) {
	start := time.Now()

	corpus, err := store.LoadCorpus(corpusPath)
	if err != nil {
		return nil, err
	}
	vectors, err := store.LoadHNSWIndex(indexPath)
	if err != nil {
		return nil, err
	}
	if err := vectors.CheckAlignment(corpus.Len()); err != nil {
		return nil, err
	}
	if d := embedder.Dimensions(); d != 0 && d != vectors.Dimensions() {
		return nil, saeserrors.New(saeserrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedder produces %d dimensions, index was built with %d", d, vectors.Dimensions()), nil).
			WithSuggestion("rebuild the index with the configured embedding model")
	}
	if m := vectors.Model(); m != "" && m != embedder.ModelName() {
		slog.Warn("embedding_model_mismatch",
			slog.String("index_model", m),
			slog.String("embedder_model", embedder.ModelName()))
	}

	analyzer, err := lexical.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("load analyzer: %w", err)
	}
	lex := lexical.Build(analyzer, corpus.Texts())

	r, err := NewRetriever(corpus, lex, vectors, embedder, opts...)
	if err != nil {
		return nil, err
	}

	st := lex.Stats()
	slog.Info("retrieval_loaded",
		slog.String("corpus", corpusPath),
		slog.Int("fragments", st.Fragments),
		slog.Int("noise", st.Noise),
		slog.Int("vocabulary", st.Vocabulary),
		slog.Duration("elapsed", time.Since(start)))
	return r, nil
}

// Corpus returns the loaded corpus.
func (r *Retriever) Corpus() *store.Corpus { return r.corpus }

// Stats returns lexical index statistics.
func (r *Retriever) Stats() lexical.Stats { return r.lex.Stats() }

// Rank runs both channels concurrently and returns the top fused hits.
// An empty question yields no hits.
func (r *Retriever) Rank(ctx context.Context, question string, opts Options) ([]Hit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, nil
	}
	opts = opts.withDefaults()

	var vec, lex map[int]float64
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		expanded := r.expander.Expand(question)
		q, err := r.embedder.Embed(gctx, expanded)
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		hits, err := r.vectors.Search(gctx, q, opts.KVector)
		if err != nil {
			return fmt.Errorf("vector search: %w", err)
		}
		vec = vectorScores(hits, r.lex)
		return nil
	})

	g.Go(func() error {
		lemmas := r.lex.Analyzer().LemmaSet(question)
		lex = lexicalScores(lemmas, r.lex, r.corpus.Text)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, saeserrors.New(saeserrors.ErrCodeRetrievalFailed, "retrieval failed", err)
	}

	fused := Fuse(vec, lex)
	if len(fused) > opts.TopMerge {
		fused = fused[:opts.TopMerge]
	}

	hits := make([]Hit, len(fused))
	for i, c := range fused {
		hits[i] = Hit{Candidate: c, Fragment: r.corpus.Fragments[c.Index]}
	}
	return hits, nil
}

// Search returns the assembled context for question, or "" when nothing
// relevant was found.
func (r *Retriever) Search(ctx context.Context, question string, opts Options) (string, error) {
	opts = opts.withDefaults()
	hits, err := r.Rank(ctx, question, opts)
	if err != nil {
		return "", err
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Fragment.Text
	}
	out := Assemble(texts, opts.MaxChars)

	slog.Debug("retrieval_done",
		slog.Int("hits", len(hits)),
		slog.Int("context_chars", len(out)))
	return out, nil
}
