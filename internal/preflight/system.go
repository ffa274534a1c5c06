//go:build unix

package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const (
	// MinDiskSpace is enough for the index, telemetry and logs.
	MinDiskSpace = 500 * 1024 * 1024

	// MinFileDescriptors covers the HTTP server under load plus the
	// database pool.
	MinFileDescriptors = 1024
)

// CheckDiskSpace verifies the filesystem holding dir has room to rebuild
// the index.
func (c *Checker) CheckDiskSpace(dir string) CheckResult {
	result := CheckResult{Name: "disk_space"}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(existingAncestor(dir), &stat); err != nil {
		result.Status = StatusWarn
		result.Message = "Cannot check disk space"
		result.Details = err.Error()
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize) //nolint:gosec // block size is positive
	if available < MinDiskSpace {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("Low disk space: %s available", formatBytes(available))
		result.Details = fmt.Sprintf("at least %s recommended", formatBytes(MinDiskSpace))
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s available", formatBytes(available))
	return result
}

// CheckFileDescriptors verifies the soft open file limit.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{Name: "file_descriptors"}

	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		result.Status = StatusWarn
		result.Message = "Cannot check file descriptor limit"
		result.Details = err.Error()
		return result
	}

	if rlimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("Low limit: %d", rlimit.Cur)
		result.Details = fmt.Sprintf("raise with 'ulimit -n %d'", MinFileDescriptors)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d", rlimit.Cur)
	return result
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// existingAncestor returns dir or its closest parent that exists, so the
// check works before the index directory is created.
func existingAncestor(dir string) string {
	for {
		if _, err := os.Stat(dir); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
