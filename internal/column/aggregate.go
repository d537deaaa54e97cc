package column

import (
	"math"
	"slices"

	"github.com/hupe1980/coltab/model"
)

// Aggregate reduces the values of one cell. NaN values are ignored; an empty
// input yields NaN.
func Aggregate(values []float64, mode model.Aggregation) float64 {
	vals := values[:0:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	if len(vals) == 1 {
		return vals[0]
	}
	switch mode {
	case model.AggregateMin:
		return slices.Min(vals)
	case model.AggregateMax:
		return slices.Max(vals)
	case model.AggregateSum:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	case model.AggregateMedian:
		slices.Sort(vals)
		n := len(vals)
		if n%2 == 1 {
			return vals[n/2]
		}
		return (vals[n/2-1] + vals[n/2]) / 2
	default:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	}
}
