package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/search"
	"github.com/Aman-CERP/saesagent/internal/ui"
)

type indexOptions struct {
	corpus    string
	output    string
	batchSize int
	noColor   bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed the regulation corpus into the vector index",
		Long: `Embed every fragment of the regulation corpus with the configured
embedding model and write the HNSW index (plus its .meta file).

Run this after changing the corpus or the embedding model. Only one build
runs at a time; a lock file sits next to the index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.corpus, "corpus", "", "Corpus JSON (default from config retrieval.corpus_path)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Index path (default from config retrieval.index_path)")
	cmd.Flags().IntVar(&opts.batchSize, "batch", search.DefaultBuildBatchSize, "Fragments per embedding request")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runIndex(cmd *cobra.Command, opts indexOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg, logFile)
	if err != nil {
		return err
	}
	defer cleanup()

	corpusPath := cfg.Retrieval.CorpusPath
	if opts.corpus != "" {
		corpusPath = opts.corpus
	}
	indexPath := cfg.Retrieval.IndexPath
	if opts.output != "" {
		indexPath = opts.output
	}

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	r := ui.NewProgressRenderer(ui.NewConfig(cmd.OutOrStdout(), ui.WithNoColor(opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))))
	r.Update(ui.ProgressEvent{Stage: ui.StageLoading, Message: corpusPath})

	stats, err := search.BuildIndex(ctx, corpusPath, indexPath, emb, search.BuildOptions{
		BatchSize: opts.batchSize,
		Progress: func(done, total int) {
			r.Update(ui.ProgressEvent{Stage: ui.StageEmbedding, Current: done, Total: total})
		},
	})
	if err != nil {
		return err
	}

	r.Complete(ui.CompletionStats{
		Fragments:  stats.Fragments,
		Indexed:    stats.Fragments,
		Model:      stats.Model,
		Dimensions: stats.Dimensions,
		IndexPath:  indexPath,
		Duration:   stats.Elapsed,
	})
	return nil
}
