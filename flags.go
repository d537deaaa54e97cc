package coltab

import (
	"context"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coltab/internal/flags"
	"github.com/hupe1980/coltab/internal/graph"
	"github.com/hupe1980/coltab/internal/row"
)

// ListOp combines two row-sets.
type ListOp = flags.Op

const (
	ListAnd = flags.And
	ListOr  = flags.Or
	ListXor = flags.Xor
	// ListNot keeps rows of the first list that are not in the second.
	ListNot = flags.Not
)

// LeaseFilter leases a bit for an exclusion filter. Rows marked with an
// active filter bit are hidden.
func (t *Table) LeaseFilter() (FlagID, error) {
	return t.lease(flags.KindExclusion)
}

// LeaseList leases a bit for a named row-set. Lists never affect
// visibility.
func (t *Table) LeaseList() (FlagID, error) {
	return t.lease(flags.KindList)
}

func (t *Table) lease(kind flags.Kind) (FlagID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	f, err := t.pool.Lease(kind)
	if err != nil {
		return 0, translateError(err)
	}
	// A recycled bit may still be set on rows appended by a clone.
	for _, r := range t.rows {
		r.ClearFlag(f)
	}
	return f, nil
}

// FreeFlag clears the bit on all rows and returns it to the pool.
func (t *Table) FreeFlag(f FlagID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	active := t.pool.ExclusionMask()&f.Mask() != 0
	if err := t.pool.Free(f); err != nil {
		return translateError(err)
	}
	for _, r := range t.rows {
		r.ClearFlag(f)
	}
	if active {
		t.compileLocked()
		t.postExclusionChanged(false)
	}
	return nil
}

// SuspendFilter disables an exclusion filter while keeping its row marks.
func (t *Table) SuspendFilter(f FlagID) error {
	return t.setSuspended(f, true)
}

// ResumeFilter re-enables a suspended exclusion filter.
func (t *Table) ResumeFilter(f FlagID) error {
	return t.setSuspended(f, false)
}

func (t *Table) setSuspended(f FlagID, suspend bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if kind, ok := t.pool.Kind(f); ok && kind == flags.KindExclusion && t.pool.IsSuspended(f) == suspend {
		return nil
	}
	var err error
	if suspend {
		err = t.pool.Suspend(f)
	} else {
		err = t.pool.Resume(f)
	}
	if err != nil {
		return translateError(err)
	}
	t.compileLocked()
	t.postExclusionChanged(false)
	return nil
}

// SetRowFlag sets a leased bit or the selection bit on one row.
func (t *Table) SetRowFlag(id RowID, f FlagID) error {
	return t.updateRowFlag(id, f, true)
}

// ClearRowFlag clears a leased bit or the selection bit on one row.
func (t *Table) ClearRowFlag(id RowID, f FlagID) error {
	return t.updateRowFlag(id, f, false)
}

func (t *Table) updateRowFlag(id RowID, f FlagID, set bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	r, err := t.rowLocked(id)
	if err != nil {
		return err
	}
	if err := t.checkFlag(f); err != nil {
		return err
	}
	if r.IsFlagSet(f) == set {
		return nil
	}
	if set {
		r.SetFlag(f)
	} else {
		r.ClearFlag(f)
	}
	t.flagChangedLocked(f, false)
	return nil
}

// IsRowFlagSet reports whether a bit is set on a row.
func (t *Table) IsRowFlagSet(id RowID, f FlagID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, err := t.rowLocked(id)
	if err != nil {
		return false, err
	}
	if err := t.checkFlag(f); err != nil {
		return false, err
	}
	return r.IsFlagSet(f), nil
}

// ListRows returns the ids of the rows marked with a bit.
func (t *Table) ListRows(f FlagID) (*roaring.Bitmap, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkFlag(f); err != nil {
		return nil, err
	}
	bm := roaring.New()
	for _, r := range t.rows {
		if r.IsFlagSet(f) {
			bm.Add(uint32(r.ID()))
		}
	}
	return bm, nil
}

// CombineLists leases a new list holding op(a, b). Either operand may be a
// list, a filter or the selection bit.
func (t *Table) CombineLists(op ListOp, a, b FlagID) (FlagID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	f, err := t.pool.Combine(op, a, b, t.rows)
	if err != nil {
		return 0, translateError(err)
	}
	return f, nil
}

// SetValueRangeFilter marks every row whose projection of col lies outside
// [low, high] (or is empty) with the filter bit f. Bounds are given in
// display units. Non-numeric and cyclic columns are left untouched.
// Adjusting marks intermediate updates, e.g. while a slider is dragged; their
// notifications may be throttled.
func (t *Table) SetValueRangeFilter(f FlagID, col int, low, high float64, adjusting bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	if err := t.checkFilter(f); err != nil {
		return err
	}

	c := t.columns[col]
	if !c.SupportsValueRange() {
		t.log.DebugContext(context.Background(), "value range filter ignored",
			"column", c.Name,
			"type", c.Type().String(),
			"cyclic", c.Cyclic,
		)
		return nil
	}

	lo := float32(c.ProjectBound(low))
	hi := float32(c.ProjectBound(high))
	if math.IsNaN(float64(lo)) || math.IsNaN(float64(hi)) {
		return fmt.Errorf("%w: NaN bound", ErrInvalidColumn)
	}
	for _, r := range t.rows {
		if c.InRange(r.Value(col), lo, hi) {
			r.ClearFlag(f)
		} else {
			r.SetFlag(f)
		}
	}
	t.flagChangedLocked(f, adjusting)
	return nil
}

// SetCategoryFilter marks rows of a category column whose categories are all
// listed in excluded. Rows without a category stay unmarked.
func (t *Table) SetCategoryFilter(f FlagID, col int, excluded []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	if err := t.checkFilter(f); err != nil {
		return err
	}

	c := t.columns[col]
	if !c.IsCategory() {
		return fmt.Errorf("%w: %q is not a category column", ErrInvalidColumn, c.Name)
	}
	hidden := make(map[int]bool, len(excluded))
	for _, label := range excluded {
		if i, ok := c.CategoryOf(label); ok {
			hidden[i] = true
		}
	}
	for _, r := range t.rows {
		cats := c.RowCategories(r, col)
		mark := len(cats) > 0
		for _, i := range cats {
			if !hidden[i] {
				mark = false
				break
			}
		}
		if mark {
			r.SetFlag(f)
		} else {
			r.ClearFlag(f)
		}
	}
	t.flagChangedLocked(f, false)
	return nil
}

// Select adds rows to the selection.
func (t *Table) Select(ids ...RowID) error {
	return t.setSelection(ids, true)
}

// Deselect removes rows from the selection.
func (t *Table) Deselect(ids ...RowID) error {
	return t.setSelection(ids, false)
}

func (t *Table) setSelection(ids []RowID, set bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	rows := make([]*row.Row, len(ids))
	for i, id := range ids {
		r, err := t.rowLocked(id)
		if err != nil {
			return err
		}
		rows[i] = r
	}
	changed := false
	for _, r := range rows {
		if r.IsFlagSet(FlagSelected) != set {
			changed = true
		}
		if set {
			r.SetFlag(FlagSelected)
		} else {
			r.ClearFlag(FlagSelected)
		}
	}
	if changed {
		t.bus.Post(t.event(EventSelectionChanged))
	}
	return nil
}

// ClearSelection deselects all rows.
func (t *Table) ClearSelection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	changed := false
	for _, r := range t.rows {
		if r.IsFlagSet(FlagSelected) {
			r.ClearFlag(FlagSelected)
			changed = true
		}
	}
	if changed {
		t.bus.Post(t.event(EventSelectionChanged))
	}
	return nil
}

// SelectedRows returns the selected ids in display order.
func (t *Table) SelectedRows() []RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []RowID
	for _, r := range t.rows {
		if r.IsFlagSet(FlagSelected) {
			ids = append(ids, r.ID())
		}
	}
	return ids
}

// PropagateSelection extends the selection along row references: every
// entry of refCol names the rows whose keyCol holds the same entry. All rows
// reachable from the selected rows become selected. It returns the number of
// newly selected rows.
func (t *Table) PropagateSelection(refCol, keyCol int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	if err := t.checkColumn(refCol); err != nil {
		return 0, err
	}
	if err := t.checkColumn(keyCol); err != nil {
		return 0, err
	}

	byKey := make(map[string][]int)
	var start []int
	for i, r := range t.rows {
		for _, e := range row.Entries(r.Bytes(keyCol)) {
			byKey[string(e)] = append(byKey[string(e)], i)
		}
		if r.IsFlagSet(FlagSelected) {
			start = append(start, i)
		}
	}
	neighbors := func(i int) []int {
		var out []int
		for _, e := range row.Entries(t.rows[i].Bytes(refCol)) {
			out = append(out, byKey[string(e)]...)
		}
		return out
	}

	reached := graph.Reachable(start, neighbors, len(t.rows))
	added := 0
	for i, ok := reached.NextSet(0); ok; i, ok = reached.NextSet(i + 1) {
		r := t.rows[i]
		if !r.IsFlagSet(FlagSelected) {
			r.SetFlag(FlagSelected)
			added++
		}
	}
	if added > 0 {
		t.bus.Post(t.event(EventSelectionChanged))
	}
	return added, nil
}

// checkFlag accepts the selection bit and leased bits.
func (t *Table) checkFlag(f FlagID) error {
	if f == FlagSelected || t.pool.IsLeased(f) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidFlag, f)
}

func (t *Table) checkFilter(f FlagID) error {
	if kind, ok := t.pool.Kind(f); !ok || kind != flags.KindExclusion {
		return fmt.Errorf("%w: %s is not a leased filter", ErrInvalidFlag, f)
	}
	return nil
}

// flagChangedLocked recompiles visibility when f is an active filter and
// posts the matching notification.
func (t *Table) flagChangedLocked(f FlagID, adjusting bool) {
	switch {
	case f == FlagSelected:
		t.bus.Post(t.event(EventSelectionChanged))
	case t.pool.ExclusionMask()&f.Mask() != 0:
		t.compileLocked()
		t.postExclusionChanged(adjusting)
	}
}
