// Package openai adapts the OpenAI speech and image endpoints (through
// github.com/sashabaranov/go-openai) to the producer's collaborator
// contracts: a Speech synthesizer that writes narration takes into the
// public directory, and an Images generator for segment illustrations and
// per-orientation thumbnails.
package openai
