package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/agent"
)

type askOptions struct {
	userID    string
	userType  string
	reasoning bool
	jsonOut   bool
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question through the full pipeline",
		Long: `Answer one question exactly as the HTTP API would.

Examples:
  saesagent ask "cual es mi promedio" --user 2020630001
  saesagent ask "que es el ets"
  saesagent ask "puedo darme de baja temporal" --reasoning --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "User id (boleta or employee number)")
	cmd.Flags().StringVarP(&opts.userType, "type", "t", "alumno", "User type: alumno, profesor")
	cmd.Flags().BoolVar(&opts.reasoning, "reasoning", false, "Always answer with the language model")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the full response as JSON")

	return cmd
}

func runAsk(cmd *cobra.Command, question string, opts askOptions) error {
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

	a, err := newApp(ctx, cfg, appOptions{generator: true, records: true})
	if err != nil {
		return err
	}
	defer a.Close()
	a.svc.Start(ctx)

	resp := a.svc.Ask(ctx, agent.Request{
		Query:          question,
		UserID:         opts.userID,
		UserType:       opts.userType,
		ForceReasoning: opts.reasoning,
	})
	return printResponse(cmd, resp, opts.jsonOut)
}

func printResponse(cmd *cobra.Command, resp agent.Response, jsonOut bool) error {
	out := cmd.OutOrStdout()
	if jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	if _, err := fmt.Fprintln(out, resp.Response); err != nil {
		return err
	}
	meta := fmt.Sprintf("[%s, %.0f ms", resp.Kind, resp.TimeMS)
	if resp.FromCache {
		meta += ", cached"
	}
	if resp.Error != "" {
		meta += ", error: " + resp.Error
	}
	_, err := fmt.Fprintln(cmd.ErrOrStderr(), meta+"]")
	return err
}
