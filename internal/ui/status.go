package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Aman-CERP/saesagent/internal/agent"
	"github.com/Aman-CERP/saesagent/internal/telemetry"
)

// latencyOrder is the display order of the latency histogram.
var latencyOrder = []telemetry.LatencyBucket{
	telemetry.BucketLT10ms,
	telemetry.BucketLT100ms,
	telemetry.BucketLT1s,
	telemetry.BucketLT5s,
	telemetry.BucketGTE5s,
}

// StatusRenderer displays the service status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render displays st as a text report.
func (r *StatusRenderer) Render(st agent.Status) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("SAES Agent"))

	retrieval := r.styles.Success.Render("available")
	if !st.Retrieval {
		retrieval = r.styles.Warning.Render("unavailable")
	}
	_, _ = fmt.Fprintf(r.out, "  %s %s\n\n", r.styles.Label.Render("Retrieval:"), retrieval)

	_, _ = fmt.Fprintln(r.out, "  Queue:")
	_, _ = fmt.Fprintf(r.out, "    Pending:    %d\n", st.QueueSize)
	_, _ = fmt.Fprintf(r.out, "    Processing: %t\n", st.Processing)
	_, _ = fmt.Fprintf(r.out, "    Processed:  %d\n", st.TotalProcessed)
	errs := fmt.Sprintf("%d", st.TotalErrors)
	if st.TotalErrors > 0 {
		errs = r.styles.Error.Render(errs)
	}
	_, _ = fmt.Fprintf(r.out, "    Errors:     %s\n\n", errs)

	if len(st.Caches) > 0 {
		_, _ = fmt.Fprintln(r.out, "  Caches:")
		for _, c := range st.Caches {
			_, _ = fmt.Fprintf(r.out, "    %-10s size=%d hits=%d misses=%d (%.0f%% hit)\n",
				c.Name, c.Size, c.Hits, c.Misses, hitRate(c.Hits, c.Misses)*100)
		}
		_, _ = fmt.Fprintln(r.out)
	}

	if tel := st.Telemetry; tel != nil {
		_, _ = fmt.Fprintf(r.out, "  Answers since %s: %d\n", tel.Since.Local().Format(time.DateTime), tel.TotalAnswers)
		for _, kind := range []string{"direct", "llm", "cached", "error"} {
			_, _ = fmt.Fprintf(r.out, "    %-8s %d\n", kind, tel.KindCounts[kind])
		}
		if tel.DegradedCount > 0 {
			_, _ = fmt.Fprintf(r.out, "    %s %d\n", r.styles.Warning.Render("degraded"), tel.DegradedCount)
		}
		_, _ = fmt.Fprintf(r.out, "  Latency  %s  (<10ms ... >=5s)\n", r.styles.Bar.Render(LatencyHistogram(tel)))
		if len(tel.TopIntents) > 0 {
			_, _ = fmt.Fprintln(r.out, "  Top intents:")
			for _, ic := range tel.TopIntents {
				_, _ = fmt.Fprintf(r.out, "    %-24s %d\n", ic.Intent, ic.Count)
			}
		}
	}
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(st agent.Status) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(st)
}

// LatencyHistogram renders the latency distribution in bucket order.
func LatencyHistogram(s *telemetry.Snapshot) string {
	counts := make([]int64, len(latencyOrder))
	for i, b := range latencyOrder {
		counts[i] = s.LatencyDistribution[b]
	}
	return Histogram(counts)
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
