package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shortsmith/internal/logging"
)

// Scratch artifacts written per record for the renderer, and part
// directories written by multi-part uploads.
const (
	ScratchPattern     = "script-*.json"
	UploadPartsPattern = "upload-parts-*"
)

// CleanStaleResult contains the outcome of a stale scratch cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes entries of dir matching any of patterns whose
// modification time is older than maxAge. Matching directories are removed
// recursively. Only call this while holding the run lock: a concurrent run's
// scratch files match the same patterns.
func CleanStale(ctx context.Context, dir string, patterns []string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" || maxAge <= 0 {
		return result
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !matchesAny(entry.Name(), patterns) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if logger != nil {
				logger.Warn("failed to remove stale scratch file",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
					logging.String(logging.FieldErrorHint, "check public_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, path)
		if logger != nil {
			logger.Info("removed stale scratch file",
				logging.String("path", path),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "scratch_cleanup"),
			)
		}
	}

	return result
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
