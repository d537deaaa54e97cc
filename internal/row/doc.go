// Package row implements the row storage of the table engine.
//
// A Row holds one cell slot per column (opaque payload), a parallel array of
// float32 projections (NaN when empty or unparsable) and a 64-bit flag word.
//
// Cell slots are atomic so that pipeline workers may fill derived values while
// the coordinator reads other cells. Projections and flags are only touched by
// the coordinator.
package row
