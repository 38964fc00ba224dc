package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shortsmith/internal/config"
	"shortsmith/internal/logging"
	"shortsmith/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerFormatsRecordPrefix(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRecordID(context.Background(), "page-1")
	ctx = services.WithStage(ctx, "render")
	scoped := logging.WithContext(ctx, logging.NewComponentLogger(logger, "workflow"))
	scoped.Info("rendered composition", logging.String(logging.FieldComposition, "Portrait"), logging.String("path", "/tmp/a b.mp4"))

	content := readLog(t, logPath)
	for _, fragment := range []string{"INFO workflow [page-1 render]: rendered composition", "composition=Portrait", `path="/tmp/a b.mp4"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("with caller")
	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information, got %q", content)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("upload retry", logging.Int("part", 2))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, logPath))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "upload retry" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key in %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "cleanup failed", "cleanup_failed")
	content := readLog(t, logPath)
	for _, fragment := range []string{"event_type=cleanup_failed", "error_hint=", "impact="} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in %q", fragment, content)
		}
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if content := readLog(t, filepath.Join(cfg.Paths.LogDir, "shortsmith.log")); !strings.Contains(content, "hello") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}
