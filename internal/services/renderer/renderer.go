// Package renderer drives the external compositor that turns a scratch
// script file into a video for one composition.
package renderer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"shortsmith/internal/logging"
	"shortsmith/internal/script"
	"shortsmith/internal/services"
	"shortsmith/internal/textutil"
)

// Placeholders substituted into configured arguments.
const (
	PlaceholderComposition = "{composition}"
	PlaceholderProps       = "{props}"
	PlaceholderOutput      = "{output}"
)

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Option configures a Command.
type Option func(*Command)

// WithRunner replaces command execution (primarily for tests).
func WithRunner(run Runner) Option {
	return func(c *Command) {
		if run != nil {
			c.run = run
		}
	}
}

// Command renders compositions by shelling out to a configured binary.
type Command struct {
	binary    string
	args      []string
	outputDir string
	run       Runner
	logger    *slog.Logger
}

// New constructs a renderer. When args carry no placeholders the
// composition, output path, and --props=<scratch> are appended.
func New(binary string, args []string, outputDir string, logger *slog.Logger, opts ...Option) (*Command, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "renderer", "init", "render command not configured", nil)
	}
	c := &Command{
		binary:    binary,
		args:      append([]string(nil), args...),
		outputDir: outputDir,
		run:       combinedOutput,
		logger:    logging.NewComponentLogger(logger, "renderer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// OutputPath returns where a composition of title is rendered.
func (c *Command) OutputPath(title string, composition script.Composition) string {
	return filepath.Join(c.outputDir, fmt.Sprintf("%s-%s.mp4", textutil.Slug(title), composition))
}

// Render renders composition for the record described by scratchPath and
// returns the video path.
func (c *Command) Render(ctx context.Context, title, scratchPath string, composition script.Composition) (string, error) {
	if _, err := os.Stat(scratchPath); err != nil {
		return "", services.Wrap(services.ErrNotFound, "renderer", "render", "scratch script missing", err)
	}
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "renderer", "render", "create output dir", err)
	}
	output := c.OutputPath(title, composition)
	args := c.buildArgs(scratchPath, composition, output)

	started := time.Now()
	c.logger.Info("rendering composition",
		logging.String(logging.FieldComposition, string(composition)),
		logging.String("output", output),
		logging.String(logging.FieldEventType, "render_started"))
	if out, err := c.run(ctx, c.binary, args...); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "renderer", "render", tail(out), err)
	}
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrExternalTool, "renderer", "render", "renderer produced no output at "+output, err)
	}
	c.logger.Info("composition rendered",
		logging.String(logging.FieldComposition, string(composition)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "render_completed"))
	return output, nil
}

func (c *Command) buildArgs(scratchPath string, composition script.Composition, output string) []string {
	replacer := strings.NewReplacer(
		PlaceholderComposition, string(composition),
		PlaceholderProps, scratchPath,
		PlaceholderOutput, output,
	)
	templated := false
	args := make([]string, 0, len(c.args)+3)
	for _, arg := range c.args {
		if strings.Contains(arg, "{") {
			if replaced := replacer.Replace(arg); replaced != arg {
				templated = true
				arg = replaced
			}
		}
		args = append(args, arg)
	}
	if !templated {
		args = append(args, string(composition), output, "--props="+scratchPath)
	}
	return args
}

// tail keeps the last lines of renderer output for error messages.
func tail(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}
