package column

import (
	"math"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
)

const (
	// DefaultMaxTextCategories is the category limit for String columns.
	DefaultMaxTextCategories = 65536
	// DefaultMaxNumericCategories is the category limit for Numeric and Date columns.
	DefaultMaxNumericCategories = 256
)

// Limits bounds category detection.
type Limits struct {
	MaxTextCategories    int
	MaxNumericCategories int
}

// DefaultLimits returns the default category limits.
func DefaultLimits() Limits {
	return Limits{
		MaxTextCategories:    DefaultMaxTextCategories,
		MaxNumericCategories: DefaultMaxNumericCategories,
	}
}

type baseKind uint8

const (
	kindString baseKind = iota
	kindNumeric
	kindDate
)

// Binding attaches a deriver to a derived column.
type Binding struct {
	Deriver deriver.Deriver
	// Version is the deriver version the stored values were computed with.
	Version string
	// Aux lists auxiliary column indexes passed to Create.
	Aux []int
	// Incomplete is raised when a row has parent data but no derived value,
	// or when Version differs from the deriver's current version.
	Incomplete bool
	// Epoch is bumped each time the column is marked incomplete.
	Epoch uint64
	// Dirty holds the ids of rows whose parent changed since the last launch.
	Dirty *roaring.Bitmap
}

// Stale reports whether the stamped version differs from the deriver's.
func (b *Binding) Stale() bool {
	return b != nil && b.Deriver != nil && b.Version != b.Deriver.Version()
}

// Column holds the metadata and analysis state of one table column.
type Column struct {
	Name  string
	Alias string
	// Parent is the index of the parent column, or -1.
	Parent int

	Aggregation model.Aggregation
	Logarithmic bool
	Cyclic      bool

	Binding *Binding

	limits      Limits
	customOrder []string

	analyzed      bool
	analyzedRows  int
	kind          baseKind
	integer       bool
	category      bool
	rangeCategory bool
	multiple      bool
	complete      bool
	completeChild bool
	unique        bool

	// distinct counts the rows containing each normalized key.
	distinct   map[string]int
	keys       map[string]CategoryKey
	labels     map[string]string
	categories []CategoryKey
	catIndex   map[string]int

	lastScan int
}

// New creates an unanalyzed column.
func New(name string, limits Limits) *Column {
	return &Column{
		Name:   name,
		Parent: -1,
		limits: limits,
	}
}

// DisplayName returns the alias if set, else the name.
func (c *Column) DisplayName() string {
	if c.Alias != "" {
		return c.Alias
	}
	return c.Name
}

// IsDerived reports whether a deriver is bound to the column.
func (c *Column) IsDerived() bool { return c.Binding != nil && c.Binding.Deriver != nil }

// Type returns the inferred type tag.
func (c *Column) Type() model.ColumnType {
	switch {
	case c.rangeCategory:
		return model.TypeRangeCategory
	case c.category:
		return model.TypeCategory
	case c.kind == kindNumeric:
		return model.TypeNumeric
	case c.kind == kindDate:
		return model.TypeDate
	default:
		return model.TypeString
	}
}

// IsNumeric reports whether values are numbers (including numeric categories
// and bin ladders).
func (c *Column) IsNumeric() bool { return c.kind == kindNumeric || c.rangeCategory }

// IsDate reports whether values are dates.
func (c *Column) IsDate() bool { return c.kind == kindDate }

// IsInteger reports whether all numeric values are whole.
func (c *Column) IsInteger() bool { return c.kind == kindNumeric && c.integer }

// IsCategory reports whether a category list exists.
func (c *Column) IsCategory() bool { return c.category }

// IsRangeCategory reports whether the categories form a bin ladder.
func (c *Column) IsRangeCategory() bool { return c.rangeCategory }

// HasProjection reports whether row projections order the column, i.e.
// numeric, date, bin or category-index values.
func (c *Column) HasProjection() bool {
	return c.kind != kindString || c.category || c.rangeCategory
}

// SupportsValueRange reports whether a numeric value-range filter applies.
func (c *Column) SupportsValueRange() bool {
	return (c.IsNumeric() || c.IsDate()) && !c.Cyclic
}

// BelongsToMultipleCategories reports whether a row spans several categories.
func (c *Column) BelongsToMultipleCategories() bool { return c.multiple }

// IsComplete reports whether no row is empty.
func (c *Column) IsComplete() bool { return c.complete }

// IsCompleteChild reports completeness over rows whose parent is non-empty.
func (c *Column) IsCompleteChild() bool { return c.completeChild }

// IsUnique reports whether every row has exactly one distinct value.
func (c *Column) IsUnique() bool { return c.unique }

// Categories returns the category labels in category order.
func (c *Column) Categories() []string {
	if !c.category {
		return nil
	}
	out := make([]string, len(c.categories))
	for i, k := range c.categories {
		out[i] = c.labels[k.Normalize()]
	}
	return out
}

// CategoryKeys returns the category keys in category order.
func (c *Column) CategoryKeys() []CategoryKey {
	if !c.category {
		return nil
	}
	return append([]CategoryKey(nil), c.categories...)
}

// CategoryIndex returns the position of a normalized key in the category list.
func (c *Column) CategoryIndex(key CategoryKey) (int, bool) {
	i, ok := c.catIndex[key.Normalize()]
	return i, ok
}

// DistinctCount returns the number of distinct non-empty values.
func (c *Column) DistinctCount() int { return len(c.distinct) }

// LastScanRows returns how many rows the most recent analysis parsed.
func (c *Column) LastScanRows() int { return c.lastScan }

// SetCustomOrder sets an explicit category order. Categories not listed keep
// their natural order after the listed ones. Ignored for bin ladders.
func (c *Column) SetCustomOrder(order []string) {
	c.customOrder = append([]string(nil), order...)
	if c.category && !c.rangeCategory {
		c.orderCategories()
	}
}

// DisplayValue converts a projection to its display value.
func (c *Column) DisplayValue(v float32) float64 {
	f := float64(v)
	if c.Logarithmic && c.kind == kindNumeric && !math.IsNaN(f) {
		return math.Pow(10, f)
	}
	return f
}

// InRange reports whether a projection lies within [low, high].
func (c *Column) InRange(v, low, high float32) bool {
	return !math.IsNaN(float64(v)) && v >= low && v <= high
}

// CategoryOf returns the category index of a label.
func (c *Column) CategoryOf(label string) (int, bool) {
	if !c.category {
		return 0, false
	}
	k, ok := c.keyOf(label)
	if !ok {
		return 0, false
	}
	return c.CategoryIndex(k)
}

// RowCategories returns the category indexes of the entries of one row.
func (c *Column) RowCategories(r *row.Row, col int) []int {
	if !c.category {
		return nil
	}
	var out []int
	for _, e := range cellEntries(r, col) {
		if i, ok := c.CategoryOf(e); ok && !slices.Contains(out, i) {
			out = append(out, i)
		}
	}
	return out
}

// ProjectBound converts a display value into projection space.
func (c *Column) ProjectBound(v float64) float64 {
	if c.Logarithmic && c.kind == kindNumeric {
		if v <= 0 {
			return math.Inf(-1)
		}
		return math.Log10(v)
	}
	return v
}
