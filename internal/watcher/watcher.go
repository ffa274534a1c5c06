// Package watcher reports changes to the regulation corpus and vector index
// files so the retriever can be rebuilt without a restart.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configures the watcher.
type Options struct {
	// DebounceWindow is the quiet period before a batch is emitted.
	DebounceWindow time.Duration
	// PollInterval is used when fsnotify cannot be initialized.
	PollInterval time.Duration
	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		DebounceWindow: 2 * time.Second,
		PollInterval:   5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = d.DebounceWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	return o
}

// ChangeFunc receives the sorted set of changed files.
type ChangeFunc func(ctx context.Context, changed []string)

// FileWatcher watches a fixed set of files. It watches their parent
// directories so files replaced by rename are still seen.
type FileWatcher struct {
	opts     Options
	paths    []string
	onChange ChangeFunc
}

// New creates a watcher for paths.
func New(paths []string, onChange ChangeFunc, opts Options) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watcher: no paths")
	}
	if onChange == nil {
		return nil, errors.New("watcher: onChange is required")
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = append(abs, a)
	}
	slices.Sort(abs)
	return &FileWatcher{opts: opts.withDefaults(), paths: slices.Compact(abs), onChange: onChange}, nil
}

// Paths returns the absolute watched paths.
func (w *FileWatcher) Paths() []string {
	return slices.Clone(w.paths)
}

// Run watches until ctx is done. onChange runs on the Run goroutine, so
// batches never overlap.
func (w *FileWatcher) Run(ctx context.Context) error {
	deb := NewDebouncer(w.opts.DebounceWindow)
	defer deb.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if w.opts.ForcePolling {
		go poll(ctx, w.paths, w.opts.PollInterval, deb.Add)
	} else if err := w.startNotify(ctx, deb); err != nil {
		slog.Warn("watcher_polling_fallback", slog.String("error", err.Error()))
		go poll(ctx, w.paths, w.opts.PollInterval, deb.Add)
	}
	slog.Info("watcher_started", slog.Int("files", len(w.paths)))

	for {
		select {
		case <-ctx.Done():
			slog.Info("watcher_stopped")
			return nil
		case batch, ok := <-deb.Output():
			if !ok {
				return nil
			}
			slog.Info("watcher_change_detected", slog.Any("files", batch))
			w.onChange(ctx, batch)
		}
	}
}

func (w *FileWatcher) startNotify(ctx context.Context, deb *Debouncer) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(w.paths))
	for _, p := range w.paths {
		dirs = append(dirs, filepath.Dir(p))
	}
	slices.Sort(dirs)
	for _, dir := range slices.Compact(dirs) {
		if err := fw.Add(dir); err != nil {
			_ = fw.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go func() {
		defer func() { _ = fw.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if ev.Op == fsnotify.Chmod {
					continue
				}
				if _, found := slices.BinarySearch(w.paths, filepath.Clean(ev.Name)); found {
					deb.Add(filepath.Clean(ev.Name))
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("watcher_error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}
