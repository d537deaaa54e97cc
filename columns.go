package coltab

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/column"
	"github.com/hupe1980/coltab/internal/resource"
	"github.com/hupe1980/coltab/model"
)

// ColumnInfo describes a column.
type ColumnInfo struct {
	Name  string
	Alias string
	Type  model.ColumnType

	Integer            bool
	Complete           bool
	CompleteChild      bool
	Unique             bool
	MultipleCategories bool
	Categories         []string
	DistinctCount      int

	// Parent is the parent column index, or -1.
	Parent int

	Derived    bool
	Deriver    string
	Version    string
	Incomplete bool

	Aggregation model.Aggregation
	Logarithmic bool
	Cyclic      bool
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.columns)
}

// ColumnIndex returns the index of the column with the given name.
func (t *Table) ColumnIndex(name string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOfLocked(name)
}

// ColumnInfo returns the metadata of a column.
func (t *Table) ColumnInfo(col int) (ColumnInfo, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkColumn(col); err != nil {
		return ColumnInfo{}, err
	}
	c := t.columns[col]
	if c.IsDerived() && t.finalized {
		c.Analyze(t.rows, col)
	}

	info := ColumnInfo{
		Name:               c.Name,
		Alias:              c.Alias,
		Type:               c.Type(),
		Integer:            c.IsInteger(),
		Complete:           c.IsComplete(),
		CompleteChild:      c.IsCompleteChild(),
		Unique:             c.IsUnique(),
		MultipleCategories: c.BelongsToMultipleCategories(),
		Categories:         c.Categories(),
		DistinctCount:      c.DistinctCount(),
		Parent:             c.Parent,
		Aggregation:        c.Aggregation,
		Logarithmic:        c.Logarithmic,
		Cyclic:             c.Cyclic,
	}
	if c.IsDerived() {
		t.metaMu.Lock()
		info.Derived = true
		info.Deriver = c.Binding.Deriver.Name()
		info.Version = c.Binding.Version
		info.Incomplete = c.Binding.Incomplete
		t.metaMu.Unlock()
	}
	return info, nil
}

// AddColumns appends empty columns and returns the index of the first one.
func (t *Table) AddColumns(names ...string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return -1, err
	}
	return t.addColumnsLocked(names)
}

func (t *Table) addColumnsLocked(names []string) (int, error) {
	if err := t.checkNames(names); err != nil {
		return -1, err
	}
	t.haltLocked()
	first, err := t.appendColumnsLocked(names)
	if err != nil {
		return -1, err
	}
	if t.finalized {
		for i := first; i < len(t.columns); i++ {
			t.columns[i].Analyze(t.rows, i)
		}
	}
	t.lastAscending = -1
	t.startDerivationsLocked()

	e := t.event(EventColumnsAdded)
	e.First = first
	t.bus.Post(e)
	return first, nil
}

func (t *Table) checkNames(names []string) error {
	for i, name := range names {
		if name == "" {
			return fmt.Errorf("%w: empty name", ErrInvalidColumn)
		}
		if _, ok := t.indexOfLocked(name); ok || slices.Contains(names[:i], name) {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
	}
	return nil
}

// appendColumnsLocked requires a halted pipeline.
func (t *Table) appendColumnsLocked(names []string) (int, error) {
	if err := t.checkNames(names); err != nil {
		return -1, err
	}
	first := len(t.columns)
	for _, name := range names {
		t.columns = append(t.columns, column.New(name, t.opts.limits))
	}
	for _, r := range t.byID {
		r.Grow(len(names))
	}
	return first, nil
}

// RemoveColumns removes columns and posts the old-to-new column mapping.
// Derived columns whose parent is removed lose their binding.
func (t *Table) RemoveColumns(cols ...int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	for _, col := range cols {
		if err := t.checkColumn(col); err != nil {
			return err
		}
	}
	if len(cols) == 0 {
		return nil
	}

	t.haltLocked()

	mapping := make(model.Identity, len(t.columns))
	keep := make([]int, 0, len(t.columns))
	for i := range t.columns {
		if slices.Contains(cols, i) {
			mapping[i] = -1
			continue
		}
		mapping[i] = len(keep)
		keep = append(keep, i)
	}

	t.metaMu.Lock()
	for i, c := range t.columns {
		if mapping[i] >= 0 {
			continue
		}
		if c.IsDerived() {
			for _, r := range t.byID {
				t.clearDerived(r, i)
			}
		}
		delete(t.stats, c.Name)
	}
	columns := make([]*column.Column, len(keep))
	for i, old := range keep {
		c := t.columns[old]
		if c.Parent >= 0 {
			c.Parent = mapping[c.Parent]
		}
		if c.IsDerived() {
			if c.Parent < 0 {
				// The values stay as plain payloads.
				for _, r := range t.byID {
					t.res.ReleaseMemory(resource.SizeOf(r.Cell(old)))
				}
				c.Binding = nil
			} else {
				aux := c.Binding.Aux[:0]
				for _, a := range c.Binding.Aux {
					if mapping[a] >= 0 {
						aux = append(aux, mapping[a])
					}
				}
				c.Binding.Aux = aux
			}
		}
		columns[i] = c
	}
	t.metaMu.Unlock()

	for _, r := range t.byID {
		r.Retain(keep)
	}
	t.columns = columns
	if t.finalized {
		for i, c := range t.columns {
			c.Analyze(t.rows, i)
		}
		t.refreshIncompleteLocked()
	}
	t.lastAscending = -1
	t.sim.Invalidate()
	t.startDerivationsLocked()

	e := t.event(EventColumnsRemoved)
	e.Mapping = mapping
	t.bus.Post(e)
	return nil
}

// RenameColumn changes the name of a column.
func (t *Table) RenameColumn(col int, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	c := t.columns[col]
	if c.Name == name {
		return nil
	}
	if err := t.checkNames([]string{name}); err != nil {
		return err
	}

	// Pipeline jobs are keyed by name.
	t.haltLocked()
	t.metaMu.Lock()
	if st, ok := t.stats[c.Name]; ok {
		delete(t.stats, c.Name)
		if de, ok := st.Err.(*DeriverError); ok {
			st.Err = &DeriverError{Column: name, Count: de.Count, Sample: de.Sample}
		}
		t.stats[name] = st
	}
	c.Name = name
	t.metaMu.Unlock()
	t.startDerivationsLocked()

	t.postColumnEvent(EventColumnRenamed, col)
	return nil
}

// SetAlias sets the display name of a column.
func (t *Table) SetAlias(col int, alias string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	t.columns[col].Alias = alias
	t.postColumnEvent(EventColumnRenamed, col)
	return nil
}

// SetParent declares parent as the parent column of col; -1 clears it.
func (t *Table) SetParent(col, parent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	if parent != -1 {
		if err := t.checkColumn(parent); err != nil || parent == col {
			return fmt.Errorf("%w: parent %d", ErrInvalidColumn, parent)
		}
	}
	if t.columns[col].IsDerived() && parent < 0 {
		return fmt.Errorf("%w: derived column %d needs a parent", ErrInvalidColumn, col)
	}
	t.columns[col].Parent = parent
	t.reanalyzeLocked(col)
	return nil
}

// BindDeriver makes col a derived column computed from parent by d. aux lists
// sibling columns passed to d when it needs auxiliary data. Rebinding to a
// different deriver invalidates all stored values.
func (t *Table) BindDeriver(col, parent int, d deriver.Deriver, aux ...int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: nil deriver", ErrNotDerived)
	}
	for _, c := range append([]int{col, parent}, aux...) {
		if err := t.checkColumn(c); err != nil {
			return err
		}
	}
	if col == parent || slices.Contains(aux, col) {
		return fmt.Errorf("%w: column %d cannot depend on itself", ErrInvalidColumn, col)
	}

	t.haltLocked()

	c := t.columns[col]
	version := d.Version()
	switch {
	case !c.IsDerived():
		// Raw payloads of a plain column are not derived values.
		for _, r := range t.byID {
			if r.Cell(col) != nil {
				r.SetCell(col, nil)
				t.invalidateDependentsLocked(r, col)
			}
		}
	case !sameDeriver(c.Binding.Deriver, d):
		version = ""
	}
	t.metaMu.Lock()
	c.Binding = &column.Binding{
		Deriver: d,
		Version: version,
		Aux:     slices.Clone(aux),
	}
	c.Parent = parent
	t.metaMu.Unlock()

	if t.finalized {
		c.Analyze(t.rows, col)
		t.refreshIncompleteLocked()
	}
	t.startDerivationsLocked()
	t.postColumnEvent(EventColumnDataChanged, col)
	return nil
}

// sameDeriver compares derivers by identity. Values of non-comparable types
// never match.
func sameDeriver(a, b deriver.Deriver) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	return ta == tb && ta.Comparable() && a == b
}

// SetAggregation sets how multi-value cells reduce to one projection.
func (t *Table) SetAggregation(col int, mode model.Aggregation) error {
	return t.updateColumn(col, func(c *column.Column) { c.Aggregation = mode })
}

// SetLogarithmic toggles the logarithmic view of a numeric column.
func (t *Table) SetLogarithmic(col int, on bool) error {
	return t.updateColumn(col, func(c *column.Column) { c.Logarithmic = on })
}

// SetCyclic marks a numeric column as wrapping (e.g. angles). Value-range
// filters do not apply to cyclic columns.
func (t *Table) SetCyclic(col int, on bool) error {
	return t.updateColumn(col, func(c *column.Column) { c.Cyclic = on })
}

// SetCategoryOrder sets an explicit category order. Bin ladders keep their
// natural order.
func (t *Table) SetCategoryOrder(col int, order []string) error {
	return t.updateColumn(col, func(c *column.Column) { c.SetCustomOrder(order) })
}

func (t *Table) updateColumn(col int, fn func(*column.Column)) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	fn(t.columns[col])
	t.reanalyzeLocked(col)
	t.postColumnEvent(EventColumnDataChanged, col)
	return nil
}

// reanalyzeLocked analyzes col and its plain child columns, whose
// complete-child state depends on col.
func (t *Table) reanalyzeLocked(col int) {
	if !t.finalized {
		return
	}
	t.columns[col].Analyze(t.rows, col)
	for i, c := range t.columns {
		if i != col && c.Parent == col && !c.IsDerived() {
			c.Analyze(t.rows, i)
		}
	}
}

func (t *Table) postColumnEvent(kind EventKind, col int) {
	e := t.event(kind)
	e.Column = col
	t.bus.Post(e)
}
