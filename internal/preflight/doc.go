// Package preflight provides readiness checks for the external services
// and working directories shortsmith depends on.
//
// These checks run in two contexts:
//   - The render command calls RunAll before claiming any record. If a check
//     fails the pass aborts rather than flipping records to Error one by one.
//   - The "shortsmith status" command shows every result next to the
//     external binary checks.
//
// Services that are not configured are skipped.
package preflight
