package ffmpeg

import (
	"context"
	"path/filepath"
	"strings"

	"shortsmith/internal/media/ffprobe"
	"shortsmith/internal/services"
)

// Inspector runs ffprobe against a file.
type Inspector func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Prober measures media with ffprobe.
type Prober struct {
	binary  string
	inspect Inspector
}

// NewProber constructs a prober invoking binary (default "ffprobe"). A nil
// inspect uses ffprobe.Inspect.
func NewProber(binary string, inspect Inspector) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	return &Prober{binary: binary, inspect: inspect}
}

// Duration returns the media duration of path in seconds.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := p.inspect(ctx, p.binary, path)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "inspect", filepath.Base(path), err)
	}
	d := result.DurationSeconds()
	if d <= 0 {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "duration", filepath.Base(path)+" reports no duration", nil)
	}
	return d, nil
}
