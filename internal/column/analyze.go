package column

import (
	"math"
	"slices"
	"strconv"

	"github.com/hupe1980/coltab/internal/row"
)

// Analyze classifies the column from scratch over all rows.
func (c *Column) Analyze(rows []*row.Row, col int) {
	c.analyzed = true
	c.analyzedRows = len(rows)
	c.lastScan = len(rows)

	if c.IsDerived() {
		c.analyzeDerived(rows, col)
		return
	}

	entries := make([][]string, len(rows))
	for i, r := range rows {
		entries[i] = cellEntries(r, col)
	}
	c.kind = detectKind(entries)
	c.integer = c.kind == kindNumeric
	c.multiple = false
	c.rangeCategory = false
	c.distinct = make(map[string]int)
	c.keys = make(map[string]CategoryKey)
	c.labels = make(map[string]string)

	for i, r := range rows {
		c.project(r, col, entries[i])
		c.collect(entries[i])
	}
	c.classifyCategories()
	if c.rangeCategory {
		for i, r := range rows {
			c.project(r, col, entries[i])
		}
	}
	if c.category && c.kind == kindString && !c.rangeCategory {
		for i, r := range rows {
			c.projectCategoryIndex(r, col, entries[i])
		}
	}

	c.complete, c.completeChild, c.unique = true, true, true
	c.updateFlags(rows, col, entries)
	if c.Parent < 0 {
		c.completeChild = c.complete
	}
}

// Extend analyzes rows appended at positions from..len(rows)-1. It falls back
// to Analyze when the type changes, the category count changes or the previous
// analysis does not cover exactly the first from rows.
func (c *Column) Extend(rows []*row.Row, col int, from int) {
	if !c.analyzed || c.analyzedRows != from || c.IsDerived() || c.rangeCategory || len(c.distinct) == 0 {
		c.Analyze(rows, col)
		return
	}

	added := rows[from:]
	entries := make([][]string, len(added))
	for i, r := range added {
		entries[i] = cellEntries(r, col)
		for _, e := range entries[i] {
			if !c.compatible(e) {
				c.Analyze(rows, col)
				return
			}
		}
	}

	before := len(c.distinct)
	for _, es := range entries {
		c.collect(es)
	}
	if c.category && len(c.distinct) != before {
		c.Analyze(rows, col)
		return
	}

	c.analyzedRows = len(rows)
	c.lastScan = len(added)
	for i, r := range added {
		c.project(r, col, entries[i])
		if c.category && c.kind == kindString {
			c.projectCategoryIndex(r, col, entries[i])
		}
	}
	c.updateFlags(added, col, entries)
	if c.Parent < 0 {
		c.completeChild = c.complete
	}
}

func (c *Column) analyzeDerived(rows []*row.Row, col int) {
	c.kind = kindString
	c.category, c.rangeCategory, c.multiple, c.unique, c.integer = false, false, false, false, false
	c.distinct, c.keys, c.labels, c.categories, c.catIndex = nil, nil, nil, nil, nil

	c.complete, c.completeChild = true, true
	for _, r := range rows {
		if r.Cell(col) != nil {
			continue
		}
		c.complete = false
		if c.Parent >= 0 && !r.IsEmpty(c.Parent) {
			c.completeChild = false
		}
	}
	if c.Parent < 0 {
		c.completeChild = c.complete
	}
}

func detectKind(entries [][]string) baseKind {
	found := false
	numeric := true
	for _, es := range entries {
		for _, e := range es {
			found = true
			if _, ok := ParseNumber(e); !ok {
				numeric = false
				break
			}
		}
		if !numeric {
			break
		}
	}
	if !found {
		return kindString
	}
	if numeric {
		return kindNumeric
	}
	for _, es := range entries {
		for _, e := range es {
			if _, ok := ParseDate(e); !ok {
				return kindString
			}
		}
	}
	return kindDate
}

func (c *Column) compatible(e string) bool {
	switch c.kind {
	case kindNumeric:
		_, ok := ParseNumber(e)
		return ok
	case kindDate:
		_, ok := ParseDate(e)
		return ok
	default:
		return true
	}
}

// keyOf returns the category key of an entry; ok is false for NaN entries.
func (c *Column) keyOf(e string) (CategoryKey, bool) {
	switch {
	case c.rangeCategory:
		lo, hi, ok := ParseRange(e)
		return RangeKey(lo, hi), ok
	case c.kind == kindNumeric:
		v, ok := ParseNumber(e)
		if !ok || math.IsNaN(v) {
			return CategoryKey{}, false
		}
		return NumberKey(v), true
	case c.kind == kindDate:
		d, ok := ParseDate(e)
		return DateKey(d), ok
	default:
		return TextKey(e), true
	}
}

// collect registers the distinct keys of one row.
func (c *Column) collect(entries []string) {
	if len(entries) == 0 {
		return
	}
	var seen []string
	for _, e := range entries {
		k, ok := c.keyOf(e)
		if !ok {
			continue
		}
		n := k.Normalize()
		if slices.Contains(seen, n) {
			continue
		}
		seen = append(seen, n)
		if c.distinct[n] == 0 {
			c.keys[n] = k
			c.labels[n] = e
		}
		c.distinct[n]++
	}
	if len(seen) > 1 {
		c.multiple = true
	}
}

// project computes the numeric projection of one row.
func (c *Column) project(r *row.Row, col int, entries []string) {
	if len(entries) == 0 {
		r.SetValue(col, float32(math.NaN()))
		return
	}
	vals := make([]float64, 0, len(entries))
	switch {
	case c.rangeCategory:
		for _, e := range entries {
			if lo, _, ok := ParseRange(e); ok {
				vals = append(vals, lo)
			}
		}
	case c.kind == kindNumeric:
		for _, e := range entries {
			v, _ := ParseNumber(e)
			if c.integer && !math.IsNaN(v) && v != math.Trunc(v) {
				c.integer = false
			}
			if c.Logarithmic {
				if v > 0 {
					v = math.Log10(v)
				} else {
					v = math.NaN()
				}
			}
			vals = append(vals, v)
		}
	case c.kind == kindDate:
		for _, e := range entries {
			if d, ok := ParseDate(e); ok {
				vals = append(vals, d)
			}
		}
	default:
		r.SetValue(col, float32(math.NaN()))
		return
	}
	r.SetValue(col, float32(Aggregate(vals, c.Aggregation)))
}

func (c *Column) projectCategoryIndex(r *row.Row, col int, entries []string) {
	best := -1
	for _, e := range entries {
		k, ok := c.keyOf(e)
		if !ok {
			continue
		}
		if i, ok := c.catIndex[k.Normalize()]; ok && (best < 0 || i < best) {
			best = i
		}
	}
	if best < 0 {
		r.SetValue(col, float32(math.NaN()))
		return
	}
	r.SetValue(col, float32(best))
}

func (c *Column) classifyCategories() {
	limit := c.limits.MaxTextCategories
	if c.kind != kindString {
		limit = c.limits.MaxNumericCategories
	}
	c.category = len(c.distinct) > 0 && len(c.distinct) <= limit
	c.categories, c.catIndex = nil, nil
	if !c.category {
		return
	}
	if c.kind == kindString {
		c.detectRanges()
	}
	c.orderCategories()
}

// detectRanges reclassifies text categories that all are self-consistent
// bin labels as a bin ladder.
func (c *Column) detectRanges() {
	bins := make([]CategoryKey, 0, len(c.keys))
	labels := make(map[string]string, len(c.keys))
	for n, k := range c.keys {
		lo, hi, ok := ParseRange(k.Text)
		if !ok || lo >= hi {
			return
		}
		rk := RangeKey(lo, hi)
		bins = append(bins, rk)
		labels[rk.Normalize()] = c.labels[n]
	}
	slices.SortFunc(bins, CategoryKey.Compare)
	if !consistentBins(bins) {
		return
	}

	distinct := make(map[string]int, len(bins))
	keys := make(map[string]CategoryKey, len(bins))
	for n, k := range c.keys {
		lo, hi, _ := ParseRange(k.Text)
		rn := RangeKey(lo, hi).Normalize()
		distinct[rn] += c.distinct[n]
		keys[rn] = RangeKey(lo, hi)
	}
	if len(distinct) != len(c.distinct) {
		return
	}
	c.rangeCategory = true
	c.distinct, c.keys, c.labels = distinct, keys, labels
}

// consistentBins checks that sorted bins are contiguous and either equal-width
// or geometrically generated.
func consistentBins(bins []CategoryKey) bool {
	if len(bins) == 0 {
		return false
	}
	for i := 1; i < len(bins); i++ {
		if !nearlyEqual(bins[i-1].High, bins[i].Num) {
			return false
		}
	}
	if len(bins) == 1 {
		return true
	}
	width := bins[0].High - bins[0].Num
	equalWidth := true
	for _, b := range bins[1:] {
		if !nearlyEqual(b.High-b.Num, width) {
			equalWidth = false
			break
		}
	}
	if equalWidth {
		return true
	}
	if bins[0].Num <= 0 {
		return false
	}
	ratio := bins[0].High / bins[0].Num
	for _, b := range bins[1:] {
		if !nearlyEqual(b.High/b.Num, ratio) {
			return false
		}
	}
	return true
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-6*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func (c *Column) orderCategories() {
	cats := make([]CategoryKey, 0, len(c.keys))
	for _, k := range c.keys {
		cats = append(cats, k)
	}
	slices.SortFunc(cats, CategoryKey.Compare)

	if len(c.customOrder) > 0 && !c.rangeCategory {
		rank := make(map[string]int, len(c.customOrder))
		for i, label := range c.customOrder {
			if k, ok := c.keyOf(label); ok {
				rank[k.Normalize()] = i
			}
		}
		slices.SortStableFunc(cats, func(a, b CategoryKey) int {
			ra, oka := rank[a.Normalize()]
			rb, okb := rank[b.Normalize()]
			switch {
			case oka && okb:
				return ra - rb
			case oka:
				return -1
			case okb:
				return 1
			default:
				return 0
			}
		})
	}

	c.categories = cats
	c.catIndex = make(map[string]int, len(cats))
	for i, k := range cats {
		c.catIndex[k.Normalize()] = i
	}
}

// updateFlags folds rows into the completeness and uniqueness state.
// A row keeps the column unique only if its single key occurs in no other row.
func (c *Column) updateFlags(rows []*row.Row, col int, entries [][]string) {
	useProjection := c.HasProjection()
	for i, r := range rows {
		empty := len(entries[i]) == 0
		if useProjection {
			empty = math.IsNaN(float64(r.Value(col)))
		}
		if empty {
			c.complete = false
			if c.Parent >= 0 && !r.IsEmpty(c.Parent) {
				c.completeChild = false
			}
		}
		if !c.unique {
			continue
		}
		if len(entries[i]) != 1 {
			c.unique = false
			continue
		}
		k, ok := c.keyOf(entries[i][0])
		if !ok || c.distinct[k.Normalize()] != 1 {
			c.unique = false
		}
	}
}

func cellEntries(r *row.Row, col int) []string {
	var out []string
	switch v := r.Cell(col).(type) {
	case []byte:
		for _, e := range row.Entries(v) {
			out = append(out, string(e))
		}
	case string:
		for _, e := range row.Entries([]byte(v)) {
			out = append(out, string(e))
		}
	case []float32:
		for _, f := range v {
			out = append(out, strconv.FormatFloat(float64(f), 'g', -1, 32))
		}
	case []float64:
		for _, f := range v {
			out = append(out, strconv.FormatFloat(f, 'g', -1, 64))
		}
	case []int32:
		for _, n := range v {
			out = append(out, strconv.FormatInt(int64(n), 10))
		}
	case []int64:
		for _, n := range v {
			out = append(out, strconv.FormatInt(n, 10))
		}
	}
	return out
}
