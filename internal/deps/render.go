package deps

import (
	"strings"

	"shortsmith/internal/config"
	"shortsmith/internal/services"
)

// Requirement names shared by the commands that gate features on them.
const (
	FFmpeg     = "FFmpeg"
	FFprobe    = "FFprobe"
	Renderer   = "Renderer"
	MermaidCLI = "Mermaid CLI"
)

// RenderRequirements lists the binaries the render pass executes.
func RenderRequirements(cfg config.Render) []Requirement {
	return []Requirement{
		{Name: FFmpeg, Command: cfg.FFmpegBinary, ConfigKey: "render.ffmpeg_binary", Description: "Retimes portrait renders and joins narration takes"},
		{Name: FFprobe, Command: cfg.FFprobeBinary, ConfigKey: "render.ffprobe_binary", Description: "Measures rendered video duration"},
		{Name: Renderer, Command: cfg.Command, ConfigKey: "render.command", Description: "Renders compositions from scratch scripts"},
	}
}

// ProducerRequirements lists the binaries the producer executes. None of
// them is required; each gates one producer feature.
func ProducerRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: FFmpeg, Command: cfg.Render.FFmpegBinary, ConfigKey: "render.ffmpeg_binary", Description: "Joins and speeds up narration takes", Optional: true},
		{Name: FFprobe, Command: cfg.Render.FFprobeBinary, ConfigKey: "render.ffprobe_binary", Description: "Measures narration take duration", Optional: true},
		{Name: MermaidCLI, Command: cfg.Producer.MermaidBinary, ConfigKey: "producer.mmdc", Description: "Renders mermaid diagram illustrations", Optional: true},
	}
}

// Verify returns a configuration error naming every missing required binary.
func Verify(statuses []Status) error {
	var missing []string
	for _, s := range statuses {
		if s.Available || s.Optional {
			continue
		}
		missing = append(missing, s.Name+": "+s.Detail)
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check binaries", strings.Join(missing, ", "), nil)
}
