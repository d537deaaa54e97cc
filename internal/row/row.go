package row

import (
	"math"
	"sync/atomic"

	"github.com/hupe1980/coltab/model"
)

type cell struct {
	v any
}

// Row is a single record of a table.
type Row struct {
	id     model.RowID
	cells  []atomic.Pointer[cell]
	values []float32
	flags  model.Mask
}

// New creates a row with empty cells and NaN projections.
func New(id model.RowID, columns int) *Row {
	r := &Row{
		id:     id,
		cells:  make([]atomic.Pointer[cell], columns),
		values: make([]float32, columns),
	}
	for i := range r.values {
		r.values[i] = float32(math.NaN())
	}
	return r
}

// ID returns the stable identity of the row.
func (r *Row) ID() model.RowID { return r.id }

// SetID reassigns the identity. Only compaction does this.
func (r *Row) SetID(id model.RowID) { r.id = id }

// Columns returns the number of cell slots.
func (r *Row) Columns() int { return len(r.cells) }

// Cell returns the payload of a column, or nil.
func (r *Row) Cell(col int) any {
	c := r.cells[col].Load()
	if c == nil {
		return nil
	}
	return c.v
}

// SetCell stores a payload. A nil value empties the slot.
func (r *Row) SetCell(col int, v any) {
	if v == nil {
		r.cells[col].Store(nil)
		return
	}
	r.cells[col].Store(&cell{v: v})
}

// Bytes returns the payload as a byte string if it is one.
func (r *Row) Bytes(col int) []byte {
	switch v := r.Cell(col).(type) {
	case []byte:
		return v
	case string:
		return []byte(v)
	default:
		return nil
	}
}

// IsEmpty reports whether the cell holds no data.
func (r *Row) IsEmpty(col int) bool {
	switch v := r.Cell(col).(type) {
	case nil:
		return true
	case []byte:
		return len(v) == 0
	case string:
		return v == ""
	default:
		return false
	}
}

// Value returns the numeric projection of a column.
func (r *Row) Value(col int) float32 { return r.values[col] }

// SetValue sets the numeric projection of a column.
func (r *Row) SetValue(col int, v float32) { r.values[col] = v }

// Flags returns the flag word.
func (r *Row) Flags() model.Mask { return r.flags }

// SetFlag sets a single flag bit.
func (r *Row) SetFlag(f model.FlagID) { r.flags |= f.Mask() }

// ClearFlag clears a single flag bit.
func (r *Row) ClearFlag(f model.FlagID) { r.flags &^= f.Mask() }

// IsFlagSet reports whether a flag bit is set.
func (r *Row) IsFlagSet(f model.FlagID) bool { return r.flags&f.Mask() != 0 }

// SetMask sets all bits of m.
func (r *Row) SetMask(m model.Mask) { r.flags |= m }

// ClearMask clears all bits of m.
func (r *Row) ClearMask(m model.Mask) { r.flags &^= m }

// HasAny reports whether any bit of m is set.
func (r *Row) HasAny(m model.Mask) bool { return r.flags&m != 0 }

// Grow appends n empty column slots.
func (r *Row) Grow(n int) {
	if n <= 0 {
		return
	}
	cells := make([]atomic.Pointer[cell], len(r.cells)+n)
	for i := range r.cells {
		cells[i].Store(r.cells[i].Load())
	}
	values := make([]float32, len(r.values)+n)
	copy(values, r.values)
	for i := len(r.values); i < len(values); i++ {
		values[i] = float32(math.NaN())
	}
	r.cells = cells
	r.values = values
}

// Retain keeps only the listed columns, in the given order.
func (r *Row) Retain(keep []int) {
	cells := make([]atomic.Pointer[cell], len(keep))
	values := make([]float32, len(keep))
	for i, col := range keep {
		cells[i].Store(r.cells[col].Load())
		values[i] = r.values[col]
	}
	r.cells = cells
	r.values = values
}

// Clone returns a copy of the row with a new identity.
// Primitive slice payloads are deep-copied, other payloads are shared.
// Flags are preserved and the projection array is reallocated.
func (r *Row) Clone(id model.RowID) *Row {
	c := &Row{
		id:     id,
		cells:  make([]atomic.Pointer[cell], len(r.cells)),
		values: make([]float32, len(r.values)),
		flags:  r.flags,
	}
	copy(c.values, r.values)
	for i := range r.cells {
		if v := r.Cell(i); v != nil {
			c.SetCell(i, clonePayload(v))
		}
	}
	return c
}

func clonePayload(v any) any {
	switch p := v.(type) {
	case []byte:
		return append([]byte(nil), p...)
	case []int32:
		return append([]int32(nil), p...)
	case []int64:
		return append([]int64(nil), p...)
	case []uint64:
		return append([]uint64(nil), p...)
	case []float32:
		return append([]float32(nil), p...)
	case []float64:
		return append([]float64(nil), p...)
	default:
		return v
	}
}
