// Package column infers column types and builds category structures.
//
// Classification pipeline per column:
//  1. Every entry parses as a number (optionally with a <, <=, >, >= modifier
//     or a NaN sentinel) -> Numeric, Integer if all values are whole.
//  2. Every entry parses as a date -> Date (projection in days since epoch).
//  3. Otherwise String.
//  4. Few distinct values -> Category. Bin labels of the form low^high with
//     contiguous, equal-width or geometric bounds -> RangeCategory.
//  5. Completeness, complete-child and uniqueness.
//
// Appending rows is analyzed incrementally; a changed category count or a
// type change falls back to a full analysis.
package column
