package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RotationPolicy bounds the log file and its archived generations.
type RotationPolicy struct {
	// MaxBytes is the size a write may not push the live file past.
	MaxBytes int64
	// Keep is how many archived generations (path.1 .. path.Keep) survive.
	Keep int
	// SyncWrites fsyncs after every write so a tailing reader sees each
	// record as soon as it is logged.
	SyncWrites bool
}

func (p RotationPolicy) withDefaults() RotationPolicy {
	if p.MaxBytes <= 0 {
		p.MaxBytes = 10 << 20
	}
	if p.Keep <= 0 {
		p.Keep = 5
	}
	return p
}

// RotatingWriter appends to a log file and archives it as path.1 once the
// next write would overflow the policy size. Safe for concurrent use.
type RotatingWriter struct {
	path   string
	policy RotationPolicy

	mu   sync.Mutex
	live *os.File
	size int64
}

// NewRotatingWriter opens path for appending, creating parent directories
// as needed. An existing file is resumed at its current size.
func NewRotatingWriter(path string, policy RotationPolicy) (*RotatingWriter, error) {
	w := &RotatingWriter{path: path, policy: policy.withDefaults()}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if err := w.reopen(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends p, archiving the live file first when p would not fit.
// A record larger than MaxBytes still lands in a fresh file on its own.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.live == nil {
		return 0, fs.ErrClosed
	}
	if w.size > 0 && w.size+int64(len(p)) > w.policy.MaxBytes {
		if err := w.archive(); err != nil {
			return 0, err
		}
	}

	n, err := w.live.Write(p)
	w.size += int64(n)
	if err != nil {
		return n, err
	}
	if w.policy.SyncWrites {
		_ = w.live.Sync()
	}
	return n, nil
}

// Sync flushes the live file.
func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.live == nil {
		return nil
	}
	return w.live.Sync()
}

// Close closes the live file. Later writes fail with fs.ErrClosed.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.live == nil {
		return nil
	}
	err := w.live.Close()
	w.live = nil
	return err
}

func (w *RotatingWriter) reopen() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stat log file: %w", err)
	}
	w.live, w.size = f, info.Size()
	return nil
}

// archive closes the live file, shifts every generation up by one and
// starts an empty live file.
func (w *RotatingWriter) archive() error {
	if err := w.live.Close(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	w.live = nil

	if err := w.shiftGenerations(); err != nil {
		_ = w.reopen()
		return err
	}
	if err := os.Rename(w.path, w.generation(1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("archive log file: %w", err)
	}
	return w.reopen()
}

// shiftGenerations renames path.N to path.N+1 from the oldest down, and
// drops anything that would land beyond Keep.
func (w *RotatingWriter) shiftGenerations() error {
	for _, gen := range w.archivedGenerations() {
		if gen >= w.policy.Keep {
			if err := os.Remove(w.generation(gen)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("drop log generation %d: %w", gen, err)
			}
			continue
		}
		if err := os.Rename(w.generation(gen), w.generation(gen+1)); err != nil {
			return fmt.Errorf("shift log generation %d: %w", gen, err)
		}
	}
	return nil
}

// archivedGenerations lists the numeric suffixes on disk, highest first.
func (w *RotatingWriter) archivedGenerations() []int {
	entries, err := os.ReadDir(filepath.Dir(w.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(w.path) + "."
	var gens []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			gens = append(gens, n)
		}
	}
	// Descending so a rename never overwrites a generation not yet moved.
	slices.Sort(gens)
	slices.Reverse(gens)
	return gens
}

func (w *RotatingWriter) generation(n int) string {
	return w.path + "." + strconv.Itoa(n)
}
