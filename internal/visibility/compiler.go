package visibility

import (
	"iter"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
)

// Index is an immutable snapshot of the visible rows.
type Index struct {
	Rows       []*row.Row
	Mask       model.Mask
	Generation uint64
	set        *roaring.Bitmap
}

// Len returns the number of visible rows.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.Rows)
}

// Contains reports whether the row identity is visible.
func (x *Index) Contains(id model.RowID) bool {
	return x != nil && x.set.Contains(uint32(id))
}

// IDs returns the visible identities in row order.
func (x *Index) IDs() []model.RowID {
	if x == nil {
		return nil
	}
	ids := make([]model.RowID, len(x.Rows))
	for i, r := range x.Rows {
		ids[i] = r.ID()
	}
	return ids
}

// Iterator yields the visible identities in ascending order.
func (x *Index) Iterator() iter.Seq[model.RowID] {
	return func(yield func(model.RowID) bool) {
		if x == nil {
			return
		}
		it := x.set.Iterator()
		for it.HasNext() {
			if !yield(model.RowID(it.Next())) {
				return
			}
		}
	}
}

// Bitmap returns a copy of the visible identity set.
func (x *Index) Bitmap() *roaring.Bitmap {
	if x == nil {
		return roaring.New()
	}
	return x.set.Clone()
}

// Compiler produces visible-row indexes.
type Compiler struct {
	generation atomic.Uint64
}

// NewCompiler creates a compiler starting at generation zero.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Generation returns the generation of the most recent compilation.
func (c *Compiler) Generation() uint64 { return c.generation.Load() }

// Compile scans rows against the exclusion mask in O(n).
func (c *Compiler) Compile(rows []*row.Row, mask model.Mask) *Index {
	visible := make([]*row.Row, 0, len(rows))
	set := roaring.New()
	for _, r := range rows {
		if r.Flags()&mask == 0 {
			visible = append(visible, r)
			set.Add(uint32(r.ID()))
		}
	}
	set.RunOptimize()
	return &Index{
		Rows:       visible,
		Mask:       mask,
		Generation: c.generation.Add(1),
		set:        set,
	}
}
