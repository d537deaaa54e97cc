// Package derive implements the derived-column pipeline.
//
// A generation flattens the (row x column) space of all jobs, cheapest deriver
// first, and lets a fixed number of workers claim pairs through an atomic
// cursor. Every worker owns a private deriver clone and scratch object.
// Cancellation is cooperative and checked before each claim.
//
// The pipeline indexes rows by slot. Callers must Halt it before they resize
// or reorder the row slice.
package derive
