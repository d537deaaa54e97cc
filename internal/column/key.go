package column

import (
	"cmp"
	"strconv"
	"strings"
)

// KeyKind discriminates CategoryKey variants.
type KeyKind uint8

const (
	KeyText KeyKind = iota
	KeyNumber
	KeyDate
	KeyRange
)

// CategoryKey is a normalized category value. The variant is fixed when the
// column is analyzed, so comparisons never inspect payload types.
type CategoryKey struct {
	Kind KeyKind // variant
	Text string  // KeyText
	Num  float64 // KeyNumber, KeyDate (days), KeyRange (low bound)
	High float64 // KeyRange
}

// TextKey returns a text category key.
func TextKey(s string) CategoryKey { return CategoryKey{Kind: KeyText, Text: s} }

// NumberKey returns a numeric category key.
func NumberKey(v float64) CategoryKey { return CategoryKey{Kind: KeyNumber, Num: v} }

// DateKey returns a date category key for a day count.
func DateKey(days float64) CategoryKey { return CategoryKey{Kind: KeyDate, Num: days} }

// RangeKey returns a bin category key.
func RangeKey(low, high float64) CategoryKey { return CategoryKey{Kind: KeyRange, Num: low, High: high} }

// Normalize returns the canonical string used for equality.
func (k CategoryKey) Normalize() string {
	switch k.Kind {
	case KeyNumber:
		return strconv.FormatFloat(k.Num, 'g', -1, 64)
	case KeyDate:
		return "d" + strconv.FormatFloat(k.Num, 'f', 0, 64)
	case KeyRange:
		return strconv.FormatFloat(k.Num, 'g', -1, 64) + RangeSeparator + strconv.FormatFloat(k.High, 'g', -1, 64)
	default:
		return k.Text
	}
}

// Compare orders keys. Text compares case-insensitively first.
func (k CategoryKey) Compare(o CategoryKey) int {
	if k.Kind != o.Kind {
		return cmp.Compare(k.Kind, o.Kind)
	}
	switch k.Kind {
	case KeyText:
		if c := strings.Compare(strings.ToLower(k.Text), strings.ToLower(o.Text)); c != 0 {
			return c
		}
		return strings.Compare(k.Text, o.Text)
	case KeyRange:
		if c := cmp.Compare(k.Num, o.Num); c != 0 {
			return c
		}
		return cmp.Compare(k.High, o.High)
	default:
		return cmp.Compare(k.Num, o.Num)
	}
}
