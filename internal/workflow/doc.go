// Package workflow runs the render pass over records waiting in the document
// store.
//
// The Manager pulls every record in the initial status and handles them one
// at a time: claim, download assets, align speech, partition word timings,
// write the renderer props file, render each composition, retime short-form
// outputs, attach the outputs, generate SEO, and optionally publish. Local
// files materialized for a record are released when its pass ends, whether
// it succeeded or failed.
//
// Every status change goes through lifecycle.Transition so records only move
// forward, and is mirrored into the run journal when one is configured. A
// failure on one record moves it to Error and the batch continues.
package workflow
