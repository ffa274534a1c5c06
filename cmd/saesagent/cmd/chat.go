package cmd

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/logging"
	"github.com/Aman-CERP/saesagent/internal/ui"
)

func newChatCmd() *cobra.Command {
	var (
		userID    string
		userType  string
		reasoning bool
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat in the terminal",
		Long: `Open a full-screen chat that asks through the same pipeline as the
HTTP API. Type /limpiar to clear the screen and /salir (or Esc) to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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

			err = ui.RunChat(ctx, a.svc, ui.ChatConfig{
				UserID:    userID,
				UserType:  userType,
				Reasoning: reasoning,
				NoColor:   ui.DetectNoColor(),
			})
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id (boleta or employee number)")
	cmd.Flags().StringVarP(&userType, "type", "t", "alumno", "User type: alumno, profesor")
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "Always answer with the language model")

	return cmd
}
