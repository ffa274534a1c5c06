package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressRenderer prints line-oriented index build progress. Embedding
// updates are throttled so large corpora do not flood the terminal.
type ProgressRenderer struct {
	mu      sync.Mutex
	out     io.Writer
	styles  Styles
	stage   Stage
	lastPct int
	started time.Time
}

// NewProgressRenderer creates a progress renderer.
func NewProgressRenderer(cfg Config) *ProgressRenderer {
	return &ProgressRenderer{
		out:     cfg.Output,
		styles:  GetStyles(cfg.NoColor),
		stage:   -1,
		lastPct: -1,
		started: time.Now(),
	}
}

// Update prints a progress line when the stage changes or progress
// crosses another 10%.
func (r *ProgressRenderer) Update(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pct := -1
	if event.Total > 0 {
		pct = event.Current * 100 / event.Total
	}
	if event.Stage == r.stage && (pct < 0 || pct/10 == r.lastPct/10) && event.Current != event.Total {
		return
	}
	r.stage = event.Stage
	r.lastPct = pct

	tag := r.styles.Bar.Render("[" + event.Stage.Icon() + "]")
	switch {
	case event.Total > 0 && event.Message != "":
		_, _ = fmt.Fprintf(r.out, "%s %d/%d - %s\n", tag, event.Current, event.Total, event.Message)
	case event.Total > 0:
		_, _ = fmt.Fprintf(r.out, "%s %d/%d\n", tag, event.Current, event.Total)
	case event.Message != "":
		_, _ = fmt.Fprintf(r.out, "%s %s\n", tag, event.Message)
	}
}

// Warn prints a non-fatal problem.
func (r *ProgressRenderer) Warn(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, "%s %v\n", r.styles.Warning.Render("WARN:"), err)
}

// Complete prints the build summary.
func (r *ProgressRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := stats.Duration
	if d == 0 {
		d = time.Since(r.started)
	}
	_, _ = fmt.Fprintf(r.out, "%s %d/%d fragments indexed in %s\n",
		r.styles.Success.Render("Complete:"), stats.Indexed, stats.Fragments, d.Round(100*time.Millisecond))
	if stats.Model != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s (%d dims)\n", r.styles.Label.Render("Embedder:"), stats.Model, stats.Dimensions)
	}
	if stats.IndexPath != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Index:   "), stats.IndexPath)
	}
}
