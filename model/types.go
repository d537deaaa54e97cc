package model

import (
	"fmt"
	"math/bits"
)

// RowID is the stable identity of a row.
// It is reassigned to a contiguous range only during compaction.
type RowID uint32

// FlagID is the index of a bit in a row's flag word.
type FlagID uint8

const (
	// FlagSelected marks selected rows.
	FlagSelected FlagID = 0
	// FlagDeleted marks rows scheduled for removal during compaction.
	FlagDeleted FlagID = 1
	// FirstDynamicFlag is the lowest bit handed out by the flag pool.
	FirstDynamicFlag FlagID = 2
	// FlagWidth is the number of bits in a row flag word.
	FlagWidth = 64
	// DynamicFlagCount is the number of leasable bits.
	DynamicFlagCount = FlagWidth - int(FirstDynamicFlag)
)

// Mask returns the single-bit mask of the flag.
func (f FlagID) Mask() Mask { return Mask(1) << f }

// String returns a string representation of the FlagID.
func (f FlagID) String() string {
	switch f {
	case FlagSelected:
		return "selected"
	case FlagDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("flag(%d)", uint8(f))
	}
}

// Mask is a set of flag bits.
type Mask uint64

// Has reports whether all bits of other are set in m.
func (m Mask) Has(other Mask) bool { return m&other == other }

// Intersects reports whether m and other share a bit.
func (m Mask) Intersects(other Mask) bool { return m&other != 0 }

// Count returns the number of bits set.
func (m Mask) Count() int { return bits.OnesCount64(uint64(m)) }

// ColumnType is the inferred semantic type of a column.
type ColumnType uint8

const (
	TypeString ColumnType = iota
	TypeNumeric
	TypeDate
	TypeCategory
	TypeRangeCategory
)

func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	case TypeCategory:
		return "category"
	case TypeRangeCategory:
		return "range-category"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

// Aggregation reduces several numeric entries of one cell to a single value.
type Aggregation uint8

const (
	AggregateMean Aggregation = iota
	AggregateMedian
	AggregateMin
	AggregateMax
	AggregateSum
)

func (a Aggregation) String() string {
	switch a {
	case AggregateMean:
		return "mean"
	case AggregateMedian:
		return "median"
	case AggregateMin:
		return "min"
	case AggregateMax:
		return "max"
	case AggregateSum:
		return "sum"
	default:
		return fmt.Sprintf("Aggregation(%d)", uint8(a))
	}
}

// Identity maps old row (or column) positions to new ones after a removal.
// A value of -1 means the entry was removed.
type Identity []int

// Surviving returns the number of entries that were kept.
func (m Identity) Surviving() int {
	n := 0
	for _, v := range m {
		if v >= 0 {
			n++
		}
	}
	return n
}
