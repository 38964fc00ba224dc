// Package textutil provides text helpers shared by the codec, the
// orchestrator, and the producer: filename slugs, caption sanitizing for
// aligners, speaker-tag extraction, and word counting.
package textutil
