package coltab

import (
	"testing"

	"github.com/hupe1980/coltab/model"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseFlags(t *testing.T) {
	tbl := newTestTable(t, []string{"a"})

	var leased []FlagID
	for i := range model.DynamicFlagCount {
		var f FlagID
		var err error
		if i%2 == 0 {
			f, err = tbl.LeaseFilter()
		} else {
			f, err = tbl.LeaseList()
		}
		require.NoError(t, err)
		assert.GreaterOrEqual(t, f, model.FirstDynamicFlag)
		leased = append(leased, f)
	}

	_, err := tbl.LeaseFilter()
	require.ErrorIs(t, err, ErrFlagPoolExhausted)

	require.NoError(t, tbl.FreeFlag(leased[7]))
	f, err := tbl.LeaseList()
	require.NoError(t, err)
	assert.Equal(t, leased[7], f)

	require.ErrorIs(t, tbl.FreeFlag(FlagSelected), ErrInvalidFlag)
}

func TestValueRangeFilter(t *testing.T) {
	tbl := numericTable(t, "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "")

	f, err := tbl.LeaseFilter()
	require.NoError(t, err)

	before := tbl.Visible().Generation
	require.NoError(t, tbl.SetValueRangeFilter(f, 0, 3, 5, false))
	view := tbl.Visible()
	assert.Equal(t, []RowID{2, 3, 4}, view.Rows)
	assert.Greater(t, view.Generation, before)
	assert.False(t, tbl.IsVisible(10), "empty values are outside every range")

	t.Run("SuspendResume", func(t *testing.T) {
		require.NoError(t, tbl.SuspendFilter(f))
		assert.Len(t, tbl.Visible().Rows, 11)
		set, err := tbl.IsRowFlagSet(0, f)
		require.NoError(t, err)
		assert.True(t, set, "suspension keeps the row marks")

		require.NoError(t, tbl.ResumeFilter(f))
		assert.Equal(t, []RowID{2, 3, 4}, tbl.Visible().Rows)
	})

	t.Run("Cyclic", func(t *testing.T) {
		require.NoError(t, tbl.SetCyclic(0, true))
		require.NoError(t, tbl.SetValueRangeFilter(f, 0, 1, 10, false))
		assert.Equal(t, []RowID{2, 3, 4}, tbl.Visible().Rows)
		require.NoError(t, tbl.SetCyclic(0, false))
	})

	t.Run("NotAFilter", func(t *testing.T) {
		l, err := tbl.LeaseList()
		require.NoError(t, err)
		require.ErrorIs(t, tbl.SetValueRangeFilter(l, 0, 1, 2, false), ErrInvalidFlag)
		require.ErrorIs(t, tbl.SuspendFilter(l), ErrInvalidFlag)
	})

	t.Run("Free", func(t *testing.T) {
		require.NoError(t, tbl.FreeFlag(f))
		assert.Len(t, tbl.Visible().Rows, 11)
		require.ErrorIs(t, tbl.SetValueRangeFilter(f, 0, 1, 2, false), ErrInvalidFlag)
	})
}

func TestValueRangeFilter_TextColumn(t *testing.T) {
	tbl := newTestTable(t, []string{"s"})
	_, err := tbl.AppendRows([][]any{{"x"}, {"y"}})
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())

	f, err := tbl.LeaseFilter()
	require.NoError(t, err)
	require.NoError(t, tbl.SetValueRangeFilter(f, 0, 0, 1, false))
	assert.Len(t, tbl.Visible().Rows, 2)
}

func TestCategoryFilter(t *testing.T) {
	tbl := newTestTable(t, []string{"kind", "n"}, WithCategoryLimits(10, 1))
	_, err := tbl.AppendRows([][]any{{"a", "1"}, {"b", "2"}, {"a; b", "3"}, {}})
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())

	info, err := tbl.ColumnInfo(0)
	require.NoError(t, err)
	assert.True(t, info.MultipleCategories)

	f, err := tbl.LeaseFilter()
	require.NoError(t, err)

	require.NoError(t, tbl.SetCategoryFilter(f, 0, []string{"a"}))
	assert.Equal(t, []RowID{1, 2, 3}, tbl.Visible().Rows)

	require.NoError(t, tbl.SetCategoryFilter(f, 0, []string{"a", "b"}))
	assert.Equal(t, []RowID{3}, tbl.Visible().Rows)

	require.NoError(t, tbl.SetCategoryFilter(f, 0, nil))
	assert.Len(t, tbl.Visible().Rows, 4)

	require.ErrorIs(t, tbl.SetCategoryFilter(f, 1, []string{"1"}), ErrInvalidColumn)
}

func TestVisibilityInvariant(t *testing.T) {
	rng := testutil.NewRNG(42)
	tbl := newTestTable(t, []string{"a"})
	_, err := tbl.AddRows(200)
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())

	var filters []FlagID
	for range 3 {
		f, err := tbl.LeaseFilter()
		require.NoError(t, err)
		filters = append(filters, f)
	}
	list, err := tbl.LeaseList()
	require.NoError(t, err)
	all := append([]FlagID{list, FlagSelected}, filters...)

	for range 500 {
		id := RowID(rng.Intn(200))
		f := all[rng.Intn(len(all))]
		if rng.Intn(2) == 0 {
			require.NoError(t, tbl.SetRowFlag(id, f))
		} else {
			require.NoError(t, tbl.ClearRowFlag(id, f))
		}
	}
	require.NoError(t, tbl.SuspendFilter(filters[1]))

	active := []FlagID{filters[0], filters[2]}
	visible := 0
	for id := range RowID(200) {
		hidden := false
		for _, f := range active {
			set, err := tbl.IsRowFlagSet(id, f)
			require.NoError(t, err)
			hidden = hidden || set
		}
		assert.Equal(t, !hidden, tbl.IsVisible(id), "row %d", id)
		if !hidden {
			visible++
		}
	}
	assert.Len(t, tbl.Visible().Rows, visible)
}

func TestCombineLists(t *testing.T) {
	tbl := newTestTable(t, []string{"a"})
	_, err := tbl.AddRows(5)
	require.NoError(t, err)

	a, err := tbl.LeaseList()
	require.NoError(t, err)
	b, err := tbl.LeaseList()
	require.NoError(t, err)
	for _, id := range []RowID{0, 1, 2} {
		require.NoError(t, tbl.SetRowFlag(id, a))
	}
	for _, id := range []RowID{1, 2, 3} {
		require.NoError(t, tbl.SetRowFlag(id, b))
	}
	assert.Len(t, tbl.Visible().Rows, 5, "lists never hide rows")

	tests := []struct {
		op   ListOp
		want []uint32
	}{
		{ListAnd, []uint32{1, 2}},
		{ListOr, []uint32{0, 1, 2, 3}},
		{ListXor, []uint32{0, 3}},
		{ListNot, []uint32{0}},
	}
	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			f, err := tbl.CombineLists(tt.op, a, b)
			require.NoError(t, err)
			rows, err := tbl.ListRows(f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rows.ToArray())
			require.NoError(t, tbl.FreeFlag(f))
		})
	}

	t.Run("Selection", func(t *testing.T) {
		require.NoError(t, tbl.Select(0, 3))
		f, err := tbl.CombineLists(ListAnd, FlagSelected, a)
		require.NoError(t, err)
		rows, err := tbl.ListRows(f)
		require.NoError(t, err)
		assert.Equal(t, []uint32{0}, rows.ToArray())
	})

	t.Run("Unleased", func(t *testing.T) {
		_, err := tbl.CombineLists(ListOr, a, 40)
		require.ErrorIs(t, err, ErrInvalidFlag)
		_, err = tbl.IsRowFlagSet(0, 40)
		require.ErrorIs(t, err, ErrInvalidFlag)
		_, err = tbl.ListRows(40)
		require.ErrorIs(t, err, ErrInvalidFlag)
	})
}

func TestSelection(t *testing.T) {
	tbl := newTestTable(t, []string{"a"})
	_, err := tbl.AddRows(4)
	require.NoError(t, err)
	rec := record(t, tbl)

	require.NoError(t, tbl.Select(1, 3))
	require.NoError(t, tbl.Select(1))
	assert.Equal(t, []RowID{1, 3}, tbl.SelectedRows())

	require.ErrorIs(t, tbl.Select(0, 99), ErrInvalidRow)
	assert.Equal(t, []RowID{1, 3}, tbl.SelectedRows(), "failed select changes nothing")

	require.NoError(t, tbl.Deselect(1))
	assert.Equal(t, []RowID{3}, tbl.SelectedRows())

	require.NoError(t, tbl.ClearSelection())
	assert.Empty(t, tbl.SelectedRows())

	assert.Equal(t, []EventKind{
		EventSelectionChanged,
		EventSelectionChanged,
		EventSelectionChanged,
	}, rec.kinds(t, tbl))
}

func TestPropagateSelection(t *testing.T) {
	tbl := newTestTable(t, []string{"id", "refs"})
	_, err := tbl.AppendRows([][]any{
		{"A", "B"},
		{"B", "C; D"},
		{"C"},
		{"D", "B"},
		{"E", "A"},
	})
	require.NoError(t, err)

	require.NoError(t, tbl.Select(0))
	added, err := tbl.PropagateSelection(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, []RowID{0, 1, 2, 3}, tbl.SelectedRows())

	added, err = tbl.PropagateSelection(1, 0)
	require.NoError(t, err)
	assert.Zero(t, added)

	_, err = tbl.PropagateSelection(1, 7)
	require.ErrorIs(t, err, ErrInvalidColumn)
}
