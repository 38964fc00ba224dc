// Package producer turns a topic into records waiting for the render pass.
//
// Produce chains three agents (research, write, review), then for every
// reviewed script exports a transcript, synthesizes narration, generates
// segment illustrations and thumbnails concurrently, asks for SEO
// metadata, and saves the record through the document store.
//
// Debate and Roast are the two archetype producers: a staged debate between
// model-backed speakers, and a single-take roast of an invented dating
// profile.
//
// Newsletter and News write news scripts from a newsletter issue or from the
// day's researched headlines. They reuse Produce's per-script stages with a
// Portrait-only single take fitted to the short length, and save into the
// news database.
package producer
