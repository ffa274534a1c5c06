package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/embed"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/preflight"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that saesagent can serve answers",
		Long: `Run preflight checks against the current configuration: regulation
corpus, vector index, embedder, generation key, records backend and
system limits.

Exits non-zero when a required check fails (retrieval.required makes the
corpus and index required).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cleanup, err := setupLogging(cfg, logFile)
			if err != nil {
				return err
			}
			defer cleanup()

			var emb embed.Embedder
			if e, err := newEmbedder(cfg); err == nil {
				emb = e
				defer func() { _ = emb.Close() }()
			}

			checker := preflight.New(
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(verbose),
			)
			results := checker.RunAll(cmd.Context(), cfg, emb)

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return saeserrors.New(saeserrors.ErrCodeConfigInvalid,
					fmt.Sprintf("%d required check(s) failed", countCritical(results)), nil).
					WithSuggestion("run 'saesagent index' or fix the paths in 'saesagent config show'")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func countCritical(results []preflight.CheckResult) int {
	n := 0
	for _, r := range results {
		if r.IsCritical() {
			n++
		}
	}
	return n
}
