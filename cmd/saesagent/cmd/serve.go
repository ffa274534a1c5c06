package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/server"
	"github.com/Aman-CERP/saesagent/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API used by the SAES front end.

Endpoints:
  POST /generate/      answer a question
  GET  /queue/status   queue, cache and telemetry counters
  POST /cache/clear    drop cached records, answers and contexts
  GET  /healthz        liveness

With --watch the regulation corpus and vector index are reloaded when
their files change, without restarting the server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr, watch)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config server.addr)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload retrieval when the corpus or index changes")

	return cmd
}

func runServe(cmd *cobra.Command, addr string, watch bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg, logFileAndStderr)
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

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = cfg.Server.Addr
	if addr != "" {
		srvCfg.Addr = addr
	}
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins
	srvCfg.WriteTimeout = cfg.Server.RequestTimeout

	srv, err := server.New(a.svc, srvCfg)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (retrieval available: %t)\n", srv.Addr(), a.svc.HasSearcher())

	if watch {
		w, err := watcher.New([]string{
			cfg.Retrieval.CorpusPath,
			cfg.Retrieval.IndexPath,
			cfg.Retrieval.IndexPath + ".meta",
		}, a.reloadRetrieval, watcher.DefaultOptions())
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				slog.Error("watcher_failed", slog.String("error", err.Error()))
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutdown_requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
