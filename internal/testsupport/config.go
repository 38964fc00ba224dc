package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"shortsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.PublicDir = filepath.Join(base, "public")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Notion.Token = "test"
	cfgVal.Notion.DatabaseIDs = []string{"db-default"}
	cfgVal.LLM.APIKey = "test"
	cfgVal.Aligner.WordsBaseURL = "http://127.0.0.1:0"
	cfgVal.Render.Command = "renderer"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDatabases overrides the document store database ids.
func WithDatabases(ids ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notion.DatabaseIDs = append([]string(nil), ids...)
	}
}

// WithPublishChannels overrides the channels that require publishing.
func WithPublishChannels(channels ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.Channels = append([]string(nil), channels...)
	}
}

// WithDirectories creates the configured working directories.
func WithDirectories() ConfigOption {
	return func(b *configBuilder) {
		for _, dir := range []string{b.cfg.Paths.PublicDir, b.cfg.Paths.OutputDir, b.cfg.Paths.StateDir, b.cfg.Paths.LogDir} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				b.t.Fatalf("mkdir %s: %v", dir, err)
			}
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Render.FFmpegBinary, b.cfg.Render.FFprobeBinary, b.cfg.Render.Command}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.PublicDir)
}
