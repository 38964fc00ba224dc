// Package ffprobe wraps ffprobe's JSON output for the render pass.
//
// Inspect runs ffprobe against a rendered video or narration take and
// returns the streams and container format. The helpers on Result answer the
// questions the pipeline asks of a file: how long it runs, whether it
// carries video, and which way it is oriented.
package ffprobe
