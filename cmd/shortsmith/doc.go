// Package main hosts the shortsmith CLI entrypoint and command graph.
//
// The Cobra command tree covers the two pipeline entry points (produce and
// render), listing and download helpers against the document store, the
// local run journal, and configuration scaffolding. It centralizes
// configuration resolution, .env loading, and structured logging setup so
// subcommands only wire collaborators and print results.
//
// Keep this package lean: add new behavior to the internal packages first,
// then surface it through a command or flag here.
package main
