package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"shortsmith/internal/services"
)

// maxTempo is the largest factor a single atempo filter accepts.
const maxTempo = 2.0

// Runner executes a binary and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithRunner replaces command execution (primarily for tests).
func WithRunner(run Runner) EditorOption {
	return func(e *Editor) {
		if run != nil {
			e.run = run
		}
	}
}

// Editor rewrites media files with ffmpeg.
type Editor struct {
	binary string
	run    Runner
}

// NewEditor constructs an editor invoking binary (default "ffmpeg").
func NewEditor(binary string, opts ...EditorOption) *Editor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	e := &Editor{binary: binary, run: combinedOutput}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SpeedUpVideo plays path factor times faster and writes <name>-SpeedUp<ext>
// next to it.
func (e *Editor) SpeedUpVideo(ctx context.Context, path string, factor float64) (string, error) {
	if err := validateFactor(factor); err != nil {
		return "", err
	}
	out := SpeedUpPath(path)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-filter:v", "setpts=" + formatFactor(1/factor) + "*PTS",
		"-filter:a", "atempo=" + formatFactor(factor),
		out,
	}
	if err := e.exec(ctx, "speed up video", args); err != nil {
		return "", err
	}
	return out, nil
}

// SpeedUpAudio plays path factor times faster and writes <name>-SpeedUp<ext>
// next to it.
func (e *Editor) SpeedUpAudio(ctx context.Context, path string, factor float64) (string, error) {
	if err := validateFactor(factor); err != nil {
		return "", err
	}
	out := SpeedUpPath(path)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-filter:a", "atempo=" + formatFactor(factor),
		out,
	}
	if err := e.exec(ctx, "speed up audio", args); err != nil {
		return "", err
	}
	return out, nil
}

// ConcatAudio joins inputs in order into output without re-encoding.
func (e *Editor) ConcatAudio(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return services.Wrap(services.ErrValidation, "ffmpeg", "concat", "no inputs", nil)
	}
	list, err := os.CreateTemp(filepath.Dir(output), "concat-*.txt")
	if err != nil {
		return services.Wrap(services.ErrTransient, "ffmpeg", "concat", "create list file", err)
	}
	defer os.Remove(list.Name())
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			abs = in
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	if _, err := list.WriteString(b.String()); err != nil {
		_ = list.Close()
		return services.Wrap(services.ErrTransient, "ffmpeg", "concat", "write list file", err)
	}
	if err := list.Close(); err != nil {
		return services.Wrap(services.ErrTransient, "ffmpeg", "concat", "close list file", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		output,
	}
	return e.exec(ctx, "concat", args)
}

// SpeedUpPath returns the output path for a sped-up copy of path.
func SpeedUpPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-SpeedUp" + ext
}

func (e *Editor) exec(ctx context.Context, op string, args []string) error {
	if output, err := e.run(ctx, e.binary, args...); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", op, strings.TrimSpace(string(output)), err)
	}
	return nil
}

func validateFactor(factor float64) error {
	if factor <= 0 || factor > maxTempo {
		return services.Wrap(services.ErrValidation, "ffmpeg", "speed up", fmt.Sprintf("factor %v outside (0, %v]", factor, maxTempo), nil)
	}
	return nil
}

func formatFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}
