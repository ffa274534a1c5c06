package watcher

import (
	"context"
	"os"
	"time"
)

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// poll compares file snapshots every interval and reports changed paths.
// Used where fsnotify is unavailable, such as network mounts.
func poll(ctx context.Context, paths []string, interval time.Duration, changed func(string)) {
	state := make(map[string]fileSnapshot, len(paths))
	for _, p := range paths {
		state[p] = snapshot(p)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range paths {
				if cur := snapshot(p); cur != state[p] {
					state[p] = cur
					changed(p)
				}
			}
		}
	}
}
