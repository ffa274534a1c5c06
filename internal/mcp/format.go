package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/internal/llm"
)

// FormatAnswer renders an agent response as markdown.
func FormatAnswer(question string, resp agent.Response) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", question)
	sb.WriteString(resp.Response)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "_tipo: %s", resp.Kind)
	if resp.FromCache {
		sb.WriteString(", desde caché")
	}
	if resp.Error != "" {
		fmt.Fprintf(&sb, ", error: %s", resp.Error)
	}
	sb.WriteString("_\n")
	return sb.String()
}

// SplitFragments splits retrieval output into its fragments.
func SplitFragments(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// FormatRegulations renders retrieved fragments as a numbered markdown list.
func FormatRegulations(query string, fragments []string) string {
	if len(fragments) == 0 {
		return fmt.Sprintf("No se encontraron fragmentos del reglamento para \"%s\".\n\n%s", query, llm.NoContextAnswer)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Reglamento IPN: \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "%d fragmento", len(fragments))
	if len(fragments) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString("\n\n")
	for i, f := range fragments {
		fmt.Fprintf(&sb, "### %d.\n\n> %s\n\n", i+1, f)
	}
	return sb.String()
}
