package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/logging"
	saesmcp "github.com/Aman-CERP/saesagent/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the agent as MCP tools over stdio",
		Long: `Start a Model Context Protocol server exposing the tools ask,
search_regulations and service_status, plus the resources saes://status
and saes://glossary.

stdout carries JSON-RPC only; logs go to the log file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			level := cfg.Server.LogLevel
			if debugMode {
				level = "debug"
			}
			cleanup, err := logging.SetupFileOnly(level)
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := newApp(ctx, cfg, appOptions{generator: true, records: true, telemetry: true})
			if err != nil {
				return err
			}
			defer a.Close()
			a.svc.Start(ctx)

			srv, err := saesmcp.NewServer(a.svc)
			if err != nil {
				return err
			}
			return srv.Serve(ctx, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	return cmd
}
