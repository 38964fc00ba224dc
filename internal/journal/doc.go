// Package journal keeps a local SQLite ledger of lifecycle transitions and
// publications made by render runs.
//
// The document store remains the source of truth for record status. The
// journal exists so operators can see what a run did after the fact, and so
// a re-queued record does not publish a composition that already went out.
package journal
