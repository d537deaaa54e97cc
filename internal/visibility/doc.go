// Package visibility compiles the dense index of visible rows.
//
// A row is visible iff (flags & activeExclusionMask) == 0. Every compilation
// bumps a monotonically increasing generation so observers can detect stale
// views cheaply. The visible identities are also kept in a Roaring bitmap for
// O(1) membership tests.
package visibility
