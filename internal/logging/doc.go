// Package logging assembles structured slog loggers and formatting helpers used
// across shortsmith.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers so pipeline code tags log lines with record IDs,
// stages, and correlation IDs automatically. A no-op logger is provided for
// tests and wiring code that cannot fail.
package logging
