package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/saesagent/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Configuration is layered, later layers winning:
  1. built-in defaults
  2. user config (~/.config/saesagent/config.yaml)
  3. ./saesagent.yaml
  4. environment (SAES_*, DB_*, XAI_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, OLLAMA_HOST)`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default user config",
		Long: `Write the built-in defaults to the user config file. An existing file
is kept unless --force is given, in which case it is backed up first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if config.UserConfigExists() && !force {
				return fmt.Errorf("user config already exists at %s (use --force to overwrite)", config.GetUserConfigPath())
			}
			backup, err := config.WriteUserConfig(config.NewConfig())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if backup != "" {
				_, _ = fmt.Fprintf(out, "Backed up previous config to %s\n", backup)
			}
			_, err = fmt.Fprintf(out, "Wrote %s\n", config.GetUserConfigPath())
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing user config")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			redacted := cfg.Redacted()

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(redacted)
			}
			data, err := yaml.Marshal(redacted)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
