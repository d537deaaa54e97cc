package coltab

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package prom
// ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordFinalize is called after each finalize pass.
	RecordFinalize(rows, columns int, duration time.Duration)

	// RecordDerivation is called once per drained derived column.
	// duration is measured from the start of the generation.
	RecordDerivation(column string, updated, failed int64, duration time.Duration)

	// RecordSort is called after each sort.
	RecordSort(rows int, duration time.Duration)

	// RecordSimilarity is called after each similarity run.
	RecordSimilarity(rows int, cached bool, duration time.Duration, err error)

	// RecordCompaction is called after rows were removed.
	RecordCompaction(removed int, duration time.Duration)

	// RecordVisibility is called after each visibility recompilation.
	RecordVisibility(visible int, generation uint64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFinalize(int, int, time.Duration)               {}
func (NoopMetricsCollector) RecordDerivation(string, int64, int64, time.Duration) {}
func (NoopMetricsCollector) RecordSort(int, time.Duration)                        {}
func (NoopMetricsCollector) RecordSimilarity(int, bool, time.Duration, error)     {}
func (NoopMetricsCollector) RecordCompaction(int, time.Duration)                  {}
func (NoopMetricsCollector) RecordVisibility(int, uint64)                         {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FinalizeCount     atomic.Int64
	DerivedColumns    atomic.Int64
	DerivedValues     atomic.Int64
	DerivationErrors  atomic.Int64
	SortCount         atomic.Int64
	SortTotalNanos    atomic.Int64
	SimilarityCount   atomic.Int64
	SimilarityCached  atomic.Int64
	SimilarityErrors  atomic.Int64
	CompactionCount   atomic.Int64
	RowsRemoved       atomic.Int64
	VisibilityCount   atomic.Int64
	VisibleRows       atomic.Int64
	VisibleGeneration atomic.Uint64
}

// RecordFinalize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFinalize(rows, columns int, duration time.Duration) {
	b.FinalizeCount.Add(1)
}

// RecordDerivation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDerivation(column string, updated, failed int64, duration time.Duration) {
	b.DerivedColumns.Add(1)
	b.DerivedValues.Add(updated)
	b.DerivationErrors.Add(failed)
}

// RecordSort implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSort(rows int, duration time.Duration) {
	b.SortCount.Add(1)
	b.SortTotalNanos.Add(duration.Nanoseconds())
}

// RecordSimilarity implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSimilarity(rows int, cached bool, duration time.Duration, err error) {
	b.SimilarityCount.Add(1)
	if cached {
		b.SimilarityCached.Add(1)
	}
	if err != nil {
		b.SimilarityErrors.Add(1)
	}
}

// RecordCompaction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCompaction(removed int, duration time.Duration) {
	b.CompactionCount.Add(1)
	b.RowsRemoved.Add(int64(removed))
}

// RecordVisibility implements MetricsCollector.
func (b *BasicMetricsCollector) RecordVisibility(visible int, generation uint64) {
	b.VisibilityCount.Add(1)
	b.VisibleRows.Store(int64(visible))
	b.VisibleGeneration.Store(generation)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FinalizeCount:     b.FinalizeCount.Load(),
		DerivedColumns:    b.DerivedColumns.Load(),
		DerivedValues:     b.DerivedValues.Load(),
		DerivationErrors:  b.DerivationErrors.Load(),
		SortCount:         b.SortCount.Load(),
		SortAvgNanos:      b.getAvgSortNanos(),
		SimilarityCount:   b.SimilarityCount.Load(),
		SimilarityCached:  b.SimilarityCached.Load(),
		SimilarityErrors:  b.SimilarityErrors.Load(),
		CompactionCount:   b.CompactionCount.Load(),
		RowsRemoved:       b.RowsRemoved.Load(),
		VisibilityCount:   b.VisibilityCount.Load(),
		VisibleRows:       b.VisibleRows.Load(),
		VisibleGeneration: b.VisibleGeneration.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSortNanos() int64 {
	count := b.SortCount.Load()
	if count == 0 {
		return 0
	}
	return b.SortTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FinalizeCount     int64
	DerivedColumns    int64
	DerivedValues     int64
	DerivationErrors  int64
	SortCount         int64
	SortAvgNanos      int64
	SimilarityCount   int64
	SimilarityCached  int64
	SimilarityErrors  int64
	CompactionCount   int64
	RowsRemoved       int64
	VisibilityCount   int64
	VisibleRows       int64
	VisibleGeneration uint64
}
