// Package cmd provides the CLI commands for saesagent.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/config"
	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
	"github.com/Aman-CERP/saesagent/internal/logging"
	"github.com/Aman-CERP/saesagent/internal/profiling"
	"github.com/Aman-CERP/saesagent/pkg/version"
)

// Global flags
var (
	debugMode  bool
	configPath string
	profile    profiling.Options
	session    *profiling.Session
)

// NewRootCmd creates the root command for the saesagent CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saesagent",
		Short: "Question answering over SAES academic records and IPN regulations",
		Long: `saesagent answers questions from IPN students and professors.

Questions about the user's own record (grades, schedule, credits, dates)
are answered directly from SAES. Everything else is answered by a language
model grounded on fragments of the institutional regulations.

Run 'saesagent index' once to embed the regulations, then 'saesagent serve'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("saesagent version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: user config + ./saesagent.yaml)")
	cmd.PersistentFlags().StringVar(&profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfiling
	cmd.PersistentPostRunE = stopProfiling

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints failures in CLI form.
func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		_, _ = fmt.Fprint(os.Stderr, saeserrors.FormatForCLI(err))
	}
	return err
}

// startProfiling starts the profiles named by the --profile-* flags.
func startProfiling(_ *cobra.Command, _ []string) error {
	if !profile.Enabled() {
		return nil
	}
	s, err := profiling.Start(profile)
	if err != nil {
		return err
	}
	session = s
	return nil
}

// stopProfiling flushes the profiles started by startProfiling.
func stopProfiling(_ *cobra.Command, _ []string) error {
	if session == nil {
		return nil
	}
	err := session.Stop()
	session = nil
	return err
}

// loadConfig loads --config when given, else the layered configuration
// rooted at the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load(".")
}

// logMode selects where a command's logs go.
type logMode int

const (
	// logFile writes to the log file only, keeping stdout clean for output.
	logFile logMode = iota
	// logFileAndStderr also mirrors to stderr, for long-running servers.
	logFileAndStderr
)

// setupLogging installs the default logger for a command. --debug lowers
// the level regardless of configuration.
func setupLogging(cfg *config.Config, mode logMode) (func(), error) {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Server.LogLevel
	logCfg.SyncWrites = cfg.Server.LogSync
	if debugMode {
		logCfg.Level = "debug"
	}
	logCfg.WriteToStderr = mode == logFileAndStderr

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	slog.Debug("logging_started", slog.String("log_file", logCfg.FilePath), slog.String("version", version.Version))
	return cleanup, nil
}
