// Package ffmpeg drives the ffmpeg and ffprobe binaries for the render pass:
// speeding up renders that overshoot the short-form limit, joining narration
// takes, and measuring media duration.
package ffmpeg
