// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp record IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classification (configuration, validation, external, transient) that
//     the orchestrator and CLI can report consistently.
//
// Collaborator adapters live in subpackages (llm, openai, aligner, ffmpeg,
// renderer, youtube) and are injected into the workflow as interfaces.
package services
