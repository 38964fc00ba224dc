package staging

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"shortsmith/internal/logging"
)

// Tracker records every file materialized locally for one record so they
// can be removed together at the end of the record's pass. Paths are kept in
// insertion order and deduplicated. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	dir    string
	paths  []string
	seen   map[string]struct{}
	logger *slog.Logger
}

// NewTracker returns a tracker that resolves bare names against dir.
func NewTracker(dir string, logger *slog.Logger) *Tracker {
	return &Tracker{
		dir:    dir,
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// Track registers paths. Relative names without a directory component are
// resolved against the tracker's directory; remote URLs and empty strings
// are ignored.
func (t *Tracker) Track(paths ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, path := range paths {
		path = t.resolve(path)
		if path == "" {
			continue
		}
		if _, ok := t.seen[path]; ok {
			continue
		}
		t.seen[path] = struct{}{}
		t.paths = append(t.paths, path)
	}
}

// TrackIn registers names relative to dir.
func (t *Tracker) TrackIn(dir string, names ...string) {
	joined := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" || isURL(name) {
			continue
		}
		if filepath.IsAbs(name) {
			joined = append(joined, name)
			continue
		}
		joined = append(joined, filepath.Join(dir, name))
	}
	t.Track(joined...)
}

// Paths returns the tracked paths.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.paths...)
}

// Release removes every tracked path. Missing files are not an error. The
// tracker is empty afterwards, even when some removals failed.
func (t *Tracker) Release() CleanStaleResult {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.seen = make(map[string]struct{})
	t.mu.Unlock()

	result := CleanStaleResult{}
	for _, path := range paths {
		err := removeFile(path)
		switch {
		case err == nil:
			result.Removed = append(result.Removed, path)
		case errors.Is(err, os.ErrNotExist):
		default:
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			if t.logger != nil {
				logging.WarnWithContext(t.logger, "failed to remove record asset", "asset_cleanup_failed",
					logging.String("path", path),
					logging.Error(err),
					logging.String(logging.FieldImpact, "local asset outlives the record pass"),
				)
			}
		}
	}
	if t.logger != nil && len(result.Removed) > 0 {
		t.logger.Debug("released record assets",
			logging.Int("removed", len(result.Removed)),
			logging.String(logging.FieldEventType, "asset_cleanup"))
	}
	return result
}

// removeFile unlinks path. Directories are never removed: a record field that
// resolves to one is a shared library, not a per-record asset.
func removeFile(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("refusing to remove directory %s", path)
	}
	return os.Remove(path)
}

func (t *Tracker) resolve(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || isURL(path) {
		return ""
	}
	if t.dir != "" && !filepath.IsAbs(path) && filepath.Base(path) == path {
		return filepath.Join(t.dir, path)
	}
	return filepath.Clean(path)
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
