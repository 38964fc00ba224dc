// Package lifecycle defines the script record status machine.
//
// Records move forward along Not ready -> Ready -> Not started -> In progress
// -> Done -> Published. Error is reachable only from In progress. The
// orchestrator validates every write through Transition so a record never
// moves backwards.
package lifecycle
