// Package model defines core types shared by the table engine.
//
// # Identity Types
//
//   - RowID: stable row identity, renumbered to 0..N-1 only on compaction
//   - FlagID: index of a bit in the 64-bit row flag word
//   - Mask: a set of flag bits
//
// # Column Tags
//
//   - ColumnType: inferred semantic type (String, Numeric, Date, Category, RangeCategory)
//   - Aggregation: reduction used when one cell holds several numeric entries
package model
