// Package logs reads the shortsmith log file for the "logs" command.
//
// Last returns the trailing lines with bounded memory; Follow polls for
// appended lines until its context ends. Both accept a filter so callers can
// narrow output to one record.
package logs
