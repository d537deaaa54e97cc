// Package deriver defines the contract between the table engine and the
// domain modules that compute derived column values (fingerprints,
// reaction codes and similar descriptors) from a parent column.
//
// The engine never assumes a Deriver is safe for concurrent use. Every worker
// goroutine obtains its own instance via Clone and its own scratch object via
// NewScratch.
package deriver

import "errors"

// ErrFatal marks an unrecoverable failure (e.g. allocation failure). Returning
// an error wrapping ErrFatal from Create aborts the running pipeline generation
// instead of being counted as a per-cell error.
var ErrFatal = errors.New("deriver: fatal error")

// Cost ranks derivers so that cheap, fixed-size results surface first.
type Cost uint8

const (
	// CostFixed is a cheap derivation producing a fixed-size value.
	CostFixed Cost = iota
	// CostVariable is a derivation whose value size depends on the input.
	CostVariable
	// CostExpensive is a costly derivation; similarity results are cached.
	CostExpensive
)

// Source is the input of a derivation: the parent cell payload plus,
// if the deriver needs it, the payloads of auxiliary sibling columns.
type Source struct {
	Parent []byte
	Aux    [][]byte
}

// Deriver computes derived values from parent column data.
type Deriver interface {
	// Name identifies the deriver (e.g. "FragFp").
	Name() string
	// Version tags the algorithm. Changing it invalidates all values previously
	// computed by this deriver.
	Version() string
	// NeedsAuxiliaryData reports whether Create needs Source.Aux.
	NeedsAuxiliaryData() bool
	// Cost ranks the derivation cost.
	Cost() Cost
	// NewScratch returns a private domain object reused across Create calls of
	// one worker.
	NewScratch() any
	// Create builds the derived value.
	Create(scratch any, src Source) (any, error)
	// Similarity returns a symmetric similarity score of two derived values.
	Similarity(a, b any) float32
	// Clone returns an independent instance for use on another goroutine.
	Clone() Deriver
}

// Orderer is implemented by derivers whose parent column has a natural order
// that is not byte-lexicographic.
type Orderer interface {
	Compare(a, b []byte) int
}

// Canonicalizer is implemented by derivers that can produce a canonical
// textual identity of a domain object. It keys the similarity cache.
type Canonicalizer interface {
	Canonical(src Source) string
}
