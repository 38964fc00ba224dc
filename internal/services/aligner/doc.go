// Package aligner talks to the forced-alignment services used by the render
// pass. Words posts an audio file and its transcript to an aeneas-style
// service and returns word spans plus the take duration. Visemes posts the
// same pair to a Montreal-Forced-Aligner-style service and maps its phone
// tier onto mouth shapes.
package aligner
