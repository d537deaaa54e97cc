package coltab_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/coltab"
	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/testutil"
)

// Example_sort demonstrates sorting by a numeric column.
func Example_sort() {
	tbl, err := coltab.New([]string{"name", "weight"})
	if err != nil {
		log.Fatal(err)
	}
	defer tbl.Close()

	_, _ = tbl.AppendRows([][]any{
		{"b", "3.5"},
		{"a", ""},
		{"c", "1"},
	})
	if err := tbl.Finalize(); err != nil {
		log.Fatal(err)
	}

	_ = tbl.Sort(1, false, false)
	fmt.Println(tbl.Visible().Rows)
	// Output: [2 0 1]
}

// Example_filter demonstrates a value-range exclusion filter.
func Example_filter() {
	tbl, _ := coltab.New([]string{"weight"})
	defer tbl.Close()

	_, _ = tbl.AppendRows([][]any{{"1"}, {"5"}, {"10"}})
	_ = tbl.Finalize()

	f, err := tbl.LeaseFilter()
	if err != nil {
		log.Fatal(err)
	}
	_ = tbl.SetValueRangeFilter(f, 0, 2, 20, false)
	fmt.Println(tbl.Visible().Rows)

	_ = tbl.SuspendFilter(f)
	fmt.Println(tbl.Visible().Rows)
	// Output:
	// [1 2]
	// [0 1 2]
}

// Example_derivedColumn demonstrates a derived column and a similarity search.
func Example_derivedColumn() {
	ctx := context.Background()

	tbl, _ := coltab.New([]string{"text", "tokens"})
	defer tbl.Close()

	_, _ = tbl.AppendRows([][]any{{"red green"}, {"green blue"}, {"red"}})
	_ = tbl.BindDeriver(1, 0, testutil.NewTokenDeriver("tokens", "v1", deriver.CostFixed))
	_ = tbl.Finalize()
	if err := tbl.AwaitDerivations(ctx); err != nil {
		log.Fatal(err)
	}

	ref := coltab.Reference{Source: &deriver.Source{Parent: []byte("red")}}
	col, _, err := tbl.ComputeSimilarity(ctx, 1, ref, "similarity")
	if err != nil {
		log.Fatal(err)
	}
	_ = tbl.Sort(col, true, false)

	for _, id := range tbl.RowIDs() {
		v, _ := tbl.Value(id, col)
		fmt.Printf("%d %.2f\n", id, v)
	}
	// Output:
	// 2 1.00
	// 0 0.50
	// 1 0.00
}
