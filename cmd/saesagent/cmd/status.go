package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/internal/ui"
)

const statusTimeout = 5 * time.Second

func newStatusCmd() *cobra.Command {
	var addr string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running server",
		Long: `Fetch /queue/status from a running 'saesagent serve' and display the
queue, cache, retrieval and telemetry counters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				addr = cfg.Server.Addr
			}

			st, err := fetchStatus(cmd.Context(), "http://"+addr+"/queue/status")
			if err != nil {
				return err
			}
			r := ui.NewStatusRenderer(cmd.OutOrStdout(), !ui.IsTTY(cmd.OutOrStdout()) || ui.DetectNoColor())
			if jsonOut {
				return r.RenderJSON(st)
			}
			return r.Render(st)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Server address (default from config server.addr)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func fetchStatus(ctx context.Context, url string) (agent.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return agent.Status{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return agent.Status{}, fmt.Errorf("server not reachable at %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return agent.Status{}, fmt.Errorf("status request failed: %s", resp.Status)
	}
	var st agent.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return agent.Status{}, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
