package coltab

import (
	"context"
	"time"

	"github.com/hupe1980/coltab/internal/resource"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
)

// DeleteRows removes rows and renumbers the survivors to 0..N-1 keeping
// their relative id order. Observers receive the old-to-new mapping with a
// RowsRemoved event. It returns the number of removed rows.
func (t *Table) DeleteRows(ids ...RowID) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, err := t.rowLocked(id); err != nil {
			return 0, err
		}
	}
	for _, id := range ids {
		t.byID[id].SetFlag(model.FlagDeleted)
	}
	return t.compactLocked(), nil
}

// DeleteSelected removes all selected rows.
func (t *Table) DeleteSelected() (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	for _, r := range t.rows {
		if r.IsFlagSet(FlagSelected) {
			r.SetFlag(model.FlagDeleted)
		}
	}
	return t.compactLocked(), nil
}

// compactLocked drops rows marked deleted.
func (t *Table) compactLocked() int {
	start := time.Now()

	removed := 0
	for _, r := range t.byID {
		if r.IsFlagSet(model.FlagDeleted) {
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	t.haltLocked()

	mapping := make(model.Identity, len(t.byID))
	byID := make([]*row.Row, 0, len(t.byID)-removed)
	for old, r := range t.byID {
		if r.IsFlagSet(model.FlagDeleted) {
			mapping[old] = -1
			t.releaseDerivedLocked(r)
			continue
		}
		mapping[old] = len(byID)
		byID = append(byID, r)
	}

	rows := make([]*row.Row, 0, len(byID))
	for _, r := range t.rows {
		if !r.IsFlagSet(model.FlagDeleted) {
			rows = append(rows, r)
		}
	}
	for id, r := range byID {
		r.SetID(RowID(id))
	}
	t.rows, t.byID = rows, byID

	if t.finalized {
		for i, c := range t.columns {
			c.Analyze(t.rows, i)
		}
	}
	t.lastAscending = -1
	t.sim.Invalidate()
	t.compileLocked()
	t.startDerivationsLocked()

	t.opts.metricsCollector.RecordCompaction(removed, time.Since(start))
	t.log.LogCompaction(context.Background(), removed, len(t.rows))

	e := t.event(EventRowsRemoved)
	e.Mapping = mapping
	t.bus.Post(e)
	return removed
}

func (t *Table) releaseDerivedLocked(r *row.Row) {
	for i, c := range t.columns {
		if c.IsDerived() {
			t.clearDerived(r, i)
		}
	}
}

// CloneRows appends copies of the given rows and returns the id of the
// first copy. Copies keep their flags and derived values.
func (t *Table) CloneRows(ids ...RowID) (RowID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	src := make([]*row.Row, len(ids))
	for i, id := range ids {
		r, err := t.rowLocked(id)
		if err != nil {
			return 0, err
		}
		src[i] = r
	}
	first := RowID(len(t.byID))
	if len(src) == 0 {
		return first, nil
	}

	t.haltLocked()

	from := len(t.rows)
	for i, r := range src {
		c := r.Clone(first + RowID(i))
		t.accountClonedLocked(c)
		t.rows = append(t.rows, c)
		t.byID = append(t.byID, c)
	}

	if t.finalized {
		for i, c := range t.columns {
			c.Extend(t.rows, i, from)
		}
		t.refreshIncompleteLocked()
	}
	t.lastAscending = -1
	t.sim.Invalidate()
	t.compileLocked()
	t.startDerivationsLocked()

	e := t.event(EventRowsAdded)
	e.First = int(first)
	t.bus.Post(e)
	return first, nil
}

// accountClonedLocked charges the derived values of a copy to the memory
// budget. Values that do not fit are dropped and derived again later.
func (t *Table) accountClonedLocked(r *row.Row) {
	for i, c := range t.columns {
		if !c.IsDerived() {
			continue
		}
		v := r.Cell(i)
		if v == nil {
			continue
		}
		if err := t.res.AcquireMemory(resource.SizeOf(v)); err != nil {
			r.SetCell(i, nil)
		}
	}
}
