// Package script defines the script record data model shared by the codec,
// the orchestrator, and the producer: segments, audio takes with their
// alignments, compositions and their renderer traits, and SEO metadata.
//
// Records marshal to JSON with the field names the renderer reads from its
// props file.
package script
