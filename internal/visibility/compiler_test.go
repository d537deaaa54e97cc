package visibility

import (
	"slices"
	"testing"

	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Basic(t *testing.T) {
	rows := make([]*row.Row, 5)
	for i := range rows {
		rows[i] = row.New(model.RowID(i), 0)
	}
	filter := model.FlagID(4)
	list := model.FlagID(5)
	rows[1].SetFlag(filter)
	rows[3].SetFlag(list)
	rows[4].SetFlag(model.FlagSelected)

	c := NewCompiler()
	idx := c.Compile(rows, filter.Mask())

	assert.Equal(t, []model.RowID{0, 2, 3, 4}, idx.IDs())
	assert.True(t, idx.Contains(3))
	assert.False(t, idx.Contains(1))
	assert.Equal(t, uint64(1), idx.Generation)
	assert.Equal(t, []model.RowID{0, 2, 3, 4}, slices.Collect(idx.Iterator()))
	assert.Equal(t, uint64(4), idx.Bitmap().GetCardinality())

	idx2 := c.Compile(rows, 0)
	assert.Equal(t, 5, idx2.Len())
	assert.Greater(t, idx2.Generation, idx.Generation)
	assert.Equal(t, idx2.Generation, c.Generation())
}

func TestCompile_VisibilityInvariant(t *testing.T) {
	rng := testutil.NewRNG(7)
	rows := make([]*row.Row, 500)
	for i := range rows {
		rows[i] = row.New(model.RowID(i), 0)
		rows[i].SetMask(model.Mask(rng.Uint64()))
	}

	c := NewCompiler()
	for range 50 {
		mask := model.Mask(rng.Uint64()) &^ (model.FlagSelected.Mask() | model.FlagDeleted.Mask())
		mask &= model.Mask(rng.Uint64())
		idx := c.Compile(rows, mask)
		for _, r := range rows {
			require.Equal(t, r.Flags()&mask == 0, idx.Contains(r.ID()))
		}
	}
}

func TestIndex_Nil(t *testing.T) {
	var idx *Index
	assert.Equal(t, 0, idx.Len())
	assert.False(t, idx.Contains(0))
	assert.Nil(t, idx.IDs())
	assert.Equal(t, uint64(0), idx.Bitmap().GetCardinality())
}
