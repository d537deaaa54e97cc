package column

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RangeSeparator separates the bounds of a bin label.
const RangeSeparator = "^"

var nanSentinels = map[string]struct{}{
	"NaN": {}, "nan": {}, "?": {}, "-": {}, "n.a.": {}, "n.d.": {},
}

var modifiers = []string{"<=", ">=", "<", ">"}

// ParseNumber parses an entry as a number. A leading relational modifier is
// tolerated. NaN sentinels parse successfully to NaN.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if _, ok := nanSentinels[s]; ok {
		return math.NaN(), true
	}
	for _, m := range modifiers {
		if strings.HasPrefix(s, m) {
			s = strings.TrimSpace(s[len(m):])
			break
		}
	}
	if s == "" {
		return 0, false
	}
	c := s[0]
	if c != '+' && c != '-' && c != '.' && (c < '0' || c > '9') {
		// rejects "Inf", "infinity" and friends accepted by strconv
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02.01.2006",
	"01/02/2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

const secondsPerDay = 24 * 60 * 60

// ParseDate parses an entry as a date and returns days since the Unix epoch.
func ParseDate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return math.Floor(float64(t.Unix()) / secondsPerDay), true
		}
	}
	return 0, false
}

// FormatDate formats a day count as an ISO date.
func FormatDate(days float64) string {
	return time.Unix(int64(days)*secondsPerDay, 0).UTC().Format("2006-01-02")
}

// ParseRange parses a bin label "low^high".
func ParseRange(s string) (low, high float64, ok bool) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), RangeSeparator)
	if !found {
		return 0, 0, false
	}
	l, ok1 := ParseNumber(lo)
	h, ok2 := ParseNumber(hi)
	if !ok1 || !ok2 || math.IsNaN(l) || math.IsNaN(h) || strings.ContainsAny(lo+hi, "<>") {
		return 0, 0, false
	}
	return l, h, true
}
