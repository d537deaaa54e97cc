package coltab

import (
	"context"
	"time"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/sorter"
)

// Sort reorders the rows by one column. Empty values sort last in both
// directions. With selectedFirst the selected rows precede the others.
// The sort is stable, so sorting by several columns in turn yields a
// lexicographic order.
func (t *Table) Sort(col int, descending, selectedFirst bool) error {
	start := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}

	t.haltLocked()

	c := t.columns[col]
	var orderer deriver.Orderer
	if !c.HasProjection() {
		orderer = t.ordererLocked(col)
	}
	strategy := sorter.Resolve(c.HasProjection(), orderer)
	sorter.Sort(t.rows, sorter.Options{
		Column:        col,
		Descending:    descending,
		SelectedFirst: selectedFirst,
		Strategy:      strategy,
		Orderer:       orderer,
	})
	t.sim.Invalidate()

	if descending {
		t.lastAscending = -1
	} else {
		t.lastAscending = col
	}
	t.compileLocked()
	t.startDerivationsLocked()

	t.opts.metricsCollector.RecordSort(len(t.rows), time.Since(start))
	t.log.LogSort(context.Background(), c.Name, strategy.String(), descending, time.Since(start))
	t.bus.Post(t.event(EventSortOrderChanged))
	return nil
}

// ordererLocked returns the domain ordering for raw values of col: the
// column's own deriver or the deriver of a column derived from it.
func (t *Table) ordererLocked(col int) deriver.Orderer {
	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	if c := t.columns[col]; c.IsDerived() {
		if o, ok := c.Binding.Deriver.(deriver.Orderer); ok {
			return o
		}
	}
	for _, c := range t.columns {
		if c.IsDerived() && c.Parent == col {
			if o, ok := c.Binding.Deriver.(deriver.Orderer); ok {
				return o
			}
		}
	}
	return nil
}

// LastAscendingSortColumn returns the column of the most recent ascending
// sort, or -1 if the order changed since.
func (t *Table) LastAscendingSortColumn() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastAscending
}
