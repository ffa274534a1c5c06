package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/agent"
	saesmcp "github.com/Aman-CERP/saesagent/internal/mcp"
)

type searchCmdOptions struct {
	limit   int
	role    string
	jsonOut bool
}

func newSearchCmd() *cobra.Command {
	var opts searchCmdOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print the regulation context retrieved for a query",
		Long: `Run hybrid retrieval (vector + lemma index) over the regulation corpus
and print the merged fragments, without generating an answer.

Examples:
  saesagent search "requisitos para servicio social"
  saesagent search "baja temporal" --limit 3 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum fragments merged (default from config retrieval.top_merge)")
	cmd.Flags().StringVar(&opts.role, "role", "", "Expand the query for a role: alumno, profesor")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Output fragments as JSON")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchCmdOptions) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg, logFile)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := newApp(ctx, cfg, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	searchOpts := searchOptions(cfg)
	if opts.limit > 0 {
		searchOpts.TopMerge = opts.limit
	}
	q := query
	if opts.role != "" {
		q = agent.ExpandForRole(query, opts.role)
	}

	slog.Info("search_started", slog.String("query", q), slog.Int("top_merge", searchOpts.TopMerge))
	text, err := a.svc.SearchRegulations(ctx, q, searchOpts)
	if err != nil {
		return err
	}
	fragments := saesmcp.SplitFragments(text)
	slog.Info("search_complete", slog.Int("fragments", len(fragments)))

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(saesmcp.SearchOutput{Fragments: fragments})
	}
	if len(fragments) == 0 {
		_, err := fmt.Fprintln(out, "No matching regulation fragments.")
		return err
	}
	for i, f := range fragments {
		if _, err := fmt.Fprintf(out, "[%d] %s\n\n", i+1, f); err != nil {
			return err
		}
	}
	return nil
}
