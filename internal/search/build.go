package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Aman-CERP/saesagent/internal/embed"
	"github.com/Aman-CERP/saesagent/internal/store"
)

// DefaultBuildBatchSize is the number of fragments embedded per call.
const DefaultBuildBatchSize = 32

// ErrBuildLocked is returned when another process is building the index.
var ErrBuildLocked = errors.New("index build already in progress")

// BuildOptions configures BuildIndex.
type BuildOptions struct {
	BatchSize int
	// Progress is called after each batch with fragments embedded so far.
	Progress func(done, total int)
}

// BuildStats describes a finished build.
type BuildStats struct {
	Fragments  int
	Dimensions int
	Model      string
	Elapsed    time.Duration
}

// BuildIndex embeds every corpus fragment, noise included, so vector
// positions match corpus positions, then saves the HNSW graph to
// indexPath. An exclusive lock next to the index keeps concurrent
// builds from interleaving.
func BuildIndex(ctx context.Context, corpusPath, indexPath string, embedder embed.Embedder, opts BuildOptions) (BuildStats, error) {
	start := time.Now()
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBuildBatchSize
	}

	lock := store.NewFileLock(indexPath)
	ok, err := lock.TryLock()
	if err != nil {
		return BuildStats{}, err
	}
	if !ok {
		return BuildStats{}, fmt.Errorf("%w (lock %s)", ErrBuildLocked, lock.Path())
	}
	defer func() { _ = lock.Unlock() }()

	corpus, err := store.LoadCorpus(corpusPath)
	if err != nil {
		return BuildStats{}, err
	}
	texts := corpus.Texts()
	slog.Info("index_build_started",
		slog.String("corpus", corpusPath),
		slog.Int("fragments", len(texts)),
		slog.String("model", embedder.ModelName()))

	var idx *store.HNSWIndex
	for first := 0; first < len(texts); first += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return BuildStats{}, err
		}
		end := min(first+opts.BatchSize, len(texts))
		vecs, err := embedder.EmbedBatch(ctx, texts[first:end])
		if err != nil {
			return BuildStats{}, fmt.Errorf("embed fragments %d-%d: %w", first, end-1, err)
		}
		if idx == nil {
			if len(vecs) == 0 {
				return BuildStats{}, fmt.Errorf("embedder returned no vectors")
			}
			cfg := store.DefaultVectorIndexConfig(len(vecs[0]))
			cfg.Model = embedder.ModelName()
			idx = store.NewHNSWIndex(cfg)
		}
		if err := idx.Add(first, vecs); err != nil {
			return BuildStats{}, fmt.Errorf("add fragments %d-%d: %w", first, end-1, err)
		}
		if opts.Progress != nil {
			opts.Progress(end, len(texts))
		}
	}
	if idx == nil {
		return BuildStats{}, fmt.Errorf("corpus %s has no fragments", corpusPath)
	}
	defer func() { _ = idx.Close() }()

	if err := idx.Save(indexPath); err != nil {
		return BuildStats{}, err
	}

	stats := BuildStats{
		Fragments:  idx.Len(),
		Dimensions: idx.Dimensions(),
		Model:      idx.Model(),
		Elapsed:    time.Since(start),
	}
	slog.Info("index_build_complete",
		slog.String("index", indexPath),
		slog.Int("fragments", stats.Fragments),
		slog.Int("dimensions", stats.Dimensions),
		slog.Duration("elapsed", stats.Elapsed))
	return stats, nil
}
