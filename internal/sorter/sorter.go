// Package sorter orders table rows by one column.
package sorter

import (
	"bytes"
	"cmp"
	"math"
	"slices"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
)

// Strategy selects how two cells of the sort column compare.
type Strategy uint8

const (
	// Numeric compares projections. NaN sorts last in both directions.
	Numeric Strategy = iota
	// Bytes compares raw payloads lexicographically. Empty cells sort last.
	Bytes
	// Domain compares raw payloads with a deriver supplied Orderer.
	Domain
)

func (s Strategy) String() string {
	switch s {
	case Numeric:
		return "numeric"
	case Bytes:
		return "bytes"
	case Domain:
		return "domain"
	default:
		return "unknown"
	}
}

// Resolve picks the strategy for a column.
func Resolve(hasProjection bool, orderer deriver.Orderer) Strategy {
	switch {
	case orderer != nil:
		return Domain
	case hasProjection:
		return Numeric
	default:
		return Bytes
	}
}

// Options configures one sort.
type Options struct {
	Column        int
	Descending    bool
	SelectedFirst bool
	Strategy      Strategy
	// Orderer is required for the Domain strategy.
	Orderer deriver.Orderer
}

// Sort reorders rows in place. The sort is stable.
func Sort(rows []*row.Row, opts Options) {
	cmpCell := comparator(opts)
	slices.SortStableFunc(rows, func(a, b *row.Row) int {
		if opts.SelectedFirst {
			sa, sb := a.IsFlagSet(model.FlagSelected), b.IsFlagSet(model.FlagSelected)
			if sa != sb {
				if sa {
					return -1
				}
				return 1
			}
		}
		return cmpCell(a, b)
	})
}

// comparator returns a function ordering two rows by the sort column with
// missing values last regardless of direction.
func comparator(opts Options) func(a, b *row.Row) int {
	col := opts.Column
	sign := 1
	if opts.Descending {
		sign = -1
	}

	switch opts.Strategy {
	case Numeric:
		return func(a, b *row.Row) int {
			va, vb := a.Value(col), b.Value(col)
			na, nb := math.IsNaN(float64(va)), math.IsNaN(float64(vb))
			if na || nb {
				return missingLast(na, nb)
			}
			return sign * cmp.Compare(va, vb)
		}
	case Domain:
		order := opts.Orderer
		return func(a, b *row.Row) int {
			ea, eb := a.IsEmpty(col), b.IsEmpty(col)
			if ea || eb {
				return missingLast(ea, eb)
			}
			return sign * order.Compare(a.Bytes(col), b.Bytes(col))
		}
	default:
		return func(a, b *row.Row) int {
			ea, eb := a.IsEmpty(col), b.IsEmpty(col)
			if ea || eb {
				return missingLast(ea, eb)
			}
			return sign * bytes.Compare(a.Bytes(col), b.Bytes(col))
		}
	}
}

func missingLast(a, b bool) int {
	switch {
	case a && b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
