// Package coltab provides an in-memory columnar table engine.
//
// A Table stores rows of opaque cell payloads together with a numeric
// projection per cell and a 64-bit flag word per row. Columns are analyzed
// into String, Numeric, Date, Category or RangeCategory columns, and derived
// columns are computed from a parent column by a pluggable deriver.Deriver on
// a background worker pool.
//
// # Quick Start
//
//	tbl, _ := coltab.New([]string{"name", "weight"})
//	defer tbl.Close()
//
//	tbl.AppendRows([][]any{{"a", "1.5"}, {"b", "3"}})
//	tbl.Finalize()
//
//	tbl.Sort(1, true, false)
//	fmt.Println(tbl.Visible().Rows)
//
// # Flags
//
// Bit 0 of the flag word marks selected rows. Bits 2..63 are leased on
// demand, either as exclusion filters or as named lists:
//
//	f, _ := tbl.LeaseFilter()
//	tbl.SetValueRangeFilter(f, 1, 0, 2, false)
//
// A row is visible iff none of its bits belongs to an active filter. A
// filter can be suspended without losing its row marks. Lists never affect
// visibility and can be combined with ListAnd, ListOr, ListXor and ListNot.
//
// # Derived Columns
//
//	col, _ := tbl.AddColumns("tokens")
//	tbl.BindDeriver(col, 0, myDeriver)
//	tbl.AwaitDerivations(ctx)
//
// The pipeline runs cheap derivers first and never blocks the caller.
// Per-cell failures are counted and reported once per column through
// DerivationStats and the logger. Changing a parent cell clears the derived
// values computed from it; UpdateDerivations recomputes them.
//
// # Events
//
// Every mutation posts an Event. Listeners run one at a time on a dedicated
// goroutine; a listener may mutate the table, and the resulting events are
// delivered after the current one returns.
//
// # Metrics
//
// Use WithMetricsCollector to plug in a MetricsCollector, e.g.
// BasicMetricsCollector or the Prometheus collector in package prom.
package coltab
