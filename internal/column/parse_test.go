package column

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" -1.5e2 ", -150, true},
		{"<5", 5, true},
		{"<= 5", 5, true},
		{">7", 7, true},
		{"Inf", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"<", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}

	for _, s := range []string{"NaN", "?", "-", "n.d."} {
		v, ok := ParseNumber(s)
		assert.True(t, ok, s)
		assert.True(t, math.IsNaN(v), s)
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("1970-01-31")
	assert.True(t, ok)
	assert.Equal(t, float64(30), d)

	d2, ok := ParseDate("31.01.1970")
	assert.True(t, ok)
	assert.Equal(t, d, d2)

	_, ok = ParseDate("yesterday")
	assert.False(t, ok)
}

func TestParseRange(t *testing.T) {
	lo, hi, ok := ParseRange("0^10")
	assert.True(t, ok)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)

	_, _, ok = ParseRange("<0^10")
	assert.False(t, ok)
	_, _, ok = ParseRange("0-10")
	assert.False(t, ok)
}

func TestCategoryKey_Compare(t *testing.T) {
	assert.Negative(t, TextKey("apple").Compare(TextKey("Banana")))
	assert.Negative(t, TextKey("A").Compare(TextKey("a")))
	assert.Positive(t, NumberKey(10).Compare(NumberKey(9)))
	assert.Negative(t, RangeKey(0, 10).Compare(RangeKey(10, 20)))
	assert.Equal(t, "1", NumberKey(1.0).Normalize())
	assert.Equal(t, "0^10", RangeKey(0, 10).Normalize())
}
