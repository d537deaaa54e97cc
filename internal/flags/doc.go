// Package flags leases the dynamic bits of the row flag word.
//
// Bits 0 (selection) and 1 (deletion) are reserved. Bits 2..63 are handed out
// from a free-list either as exclusion filters, which take part in the
// visibility mask while active, or as named lists, which never affect
// visibility. A Pool is not safe for concurrent use; the owning table
// serializes access.
package flags
