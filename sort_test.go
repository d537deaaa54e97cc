package coltab

import (
	"bytes"
	"testing"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reverseDeriver orders parent payloads in reverse byte order.
type reverseDeriver struct {
	*testutil.TokenDeriver
}

func (reverseDeriver) Compare(a, b []byte) int { return bytes.Compare(b, a) }

func TestSort_Numeric(t *testing.T) {
	tbl := numericTable(t, "3", "", "1", "2")
	rec := record(t, tbl)

	require.NoError(t, tbl.Sort(0, false, false))
	assert.Equal(t, []RowID{2, 3, 0, 1}, tbl.RowIDs())
	assert.Equal(t, []RowID{2, 3, 0, 1}, tbl.Visible().Rows)
	assert.Equal(t, 0, tbl.LastAscendingSortColumn())

	require.NoError(t, tbl.Sort(0, true, false))
	assert.Equal(t, []RowID{0, 3, 2, 1}, tbl.RowIDs(), "empty values sort last in both directions")
	assert.Equal(t, -1, tbl.LastAscendingSortColumn())

	assert.Equal(t, []EventKind{EventSortOrderChanged, EventSortOrderChanged}, rec.kinds(t, tbl))
}

func TestSort_Bytes(t *testing.T) {
	tbl := newTestTable(t, []string{"s"}, WithCategoryLimits(1, 1))
	_, err := tbl.AppendRows([][]any{{"b"}, {"a"}, {}, {"c"}})
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())

	require.NoError(t, tbl.Sort(0, false, false))
	assert.Equal(t, []RowID{1, 0, 3, 2}, tbl.RowIDs())

	require.NoError(t, tbl.Sort(0, true, false))
	assert.Equal(t, []RowID{3, 0, 1, 2}, tbl.RowIDs())
}

func TestSort_Domain(t *testing.T) {
	d := reverseDeriver{testutil.NewTokenDeriver("rev", "v1", deriver.CostFixed)}
	tbl := newTestTable(t, []string{"s", "derived"}, WithCategoryLimits(1, 1))
	_, err := tbl.AppendRows([][]any{{"b"}, {"a"}, {"c"}})
	require.NoError(t, err)
	require.NoError(t, tbl.BindDeriver(1, 0, d))
	require.NoError(t, tbl.Finalize())

	require.NoError(t, tbl.Sort(0, false, false))
	assert.Equal(t, []RowID{2, 0, 1}, tbl.RowIDs())
	require.NoError(t, tbl.AwaitDerivations(t.Context()))
}

func TestSort_SelectedFirst(t *testing.T) {
	tbl := numericTable(t, "1", "2", "3", "4")
	require.NoError(t, tbl.Select(1, 3))

	require.NoError(t, tbl.Sort(0, false, true))
	assert.Equal(t, []RowID{1, 3, 0, 2}, tbl.RowIDs())
}

func TestSort_Stable(t *testing.T) {
	tbl := newTestTable(t, []string{"group", "n"}, WithCategoryLimits(1, 1))
	_, err := tbl.AppendRows([][]any{
		{"b", "1"},
		{"a", "2"},
		{"b", "3"},
		{"a", "4"},
	})
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())

	require.NoError(t, tbl.Sort(1, true, false))
	require.NoError(t, tbl.Sort(0, false, false))
	assert.Equal(t, []RowID{3, 1, 2, 0}, tbl.RowIDs())
}

func TestSort_MutationClearsAscendingMarker(t *testing.T) {
	tbl := numericTable(t, "2", "1")
	require.NoError(t, tbl.Sort(0, false, false))
	assert.Equal(t, 0, tbl.LastAscendingSortColumn())

	_, err := tbl.AddRows(1)
	require.NoError(t, err)
	assert.Equal(t, -1, tbl.LastAscendingSortColumn())

	require.ErrorIs(t, tbl.Sort(3, false, false), ErrInvalidColumn)
}
