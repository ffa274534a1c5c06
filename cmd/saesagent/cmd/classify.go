package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/saesagent/internal/intent"
)

func newClassifyCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "classify <question>",
		Short: "Show how a question would be routed",
		Long: `Classify a question as direct (answered from the user's record or the
glossary) or complex (answered by the language model).

Examples:
  saesagent classify "cual es mi promedio"
  saesagent classify "que es un dictamen" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := intent.NewClassifier().Classify(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(c)
			}
			if c.Subtype == "" {
				_, err := fmt.Fprintln(out, c.Kind)
				return err
			}
			_, err := fmt.Fprintf(out, "%s/%s\n", c.Kind, c.Subtype)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
