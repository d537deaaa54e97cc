package coltab

import (
	"log/slog"

	"github.com/hupe1980/coltab/codec"
	"github.com/hupe1980/coltab/internal/column"
	"github.com/hupe1980/coltab/internal/similarity"
	"golang.org/x/time/rate"
)

// DefaultAdjustingEventRate bounds adjusting ExclusionChanged deliveries per second.
const DefaultAdjustingEventRate = 30

type options struct {
	codec               codec.Codec
	metricsCollector    MetricsCollector
	logger              *Logger
	workers             int
	maxWorkers          int64
	memoryLimit         int64
	limits              column.Limits
	similarityCacheSize int
	adjustingRate       rate.Limit
	adjustingBurst      int
}

// Option configures a Table.
type Option func(*options)

// WithCodec configures the codec that encodes similarity reference objects
// into cache keys for derivers without a canonical form.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithWorkers sets the number of derivation and similarity goroutines.
// If n <= 0, runtime.GOMAXPROCS(0) is used.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxWorkers bounds the worker slots shared by all background pools of the
// table. If n <= 0, runtime.GOMAXPROCS(0) is used.
func WithMaxWorkers(n int) Option {
	return func(o *options) {
		o.maxWorkers = int64(n)
	}
}

// WithMemoryLimit sets a hard limit for the memory held by derived values.
// A derivation that would exceed it aborts its generation. Zero means
// unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithCategoryLimits sets the maximum number of distinct values for which a
// String (text) or Numeric/Date (numeric) column is classified as category.
func WithCategoryLimits(text, numeric int) Option {
	return func(o *options) {
		if text > 0 {
			o.limits.MaxTextCategories = text
		}
		if numeric > 0 {
			o.limits.MaxNumericCategories = numeric
		}
	}
}

// WithSimilarityCacheSize bounds the number of cached similarity vectors of
// expensive derivers. A negative size disables the cache.
func WithSimilarityCacheSize(n int) Option {
	return func(o *options) {
		o.similarityCacheSize = n
	}
}

// WithAdjustingEventRate limits adjusting ExclusionChanged events (e.g. while
// a range slider is dragged) to r per second. Non-adjusting events are never
// dropped. A zero rate disables throttling.
func WithAdjustingEventRate(r rate.Limit, burst int) Option {
	return func(o *options) {
		o.adjustingRate = r
		o.adjustingBurst = burst
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &coltab.BasicMetricsCollector{}
//	tbl, _ := coltab.New(columns, coltab.WithMetricsCollector(metrics))
//	// ... use tbl ...
//	stats := metrics.GetStats()
//	fmt.Printf("Sorts: %d, Avg latency: %dns\n", stats.SortCount, stats.SortAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := coltab.NewJSONLogger(slog.LevelInfo)
//	tbl, _ := coltab.New(columns, coltab.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:               codec.Default,
		metricsCollector:    NoopMetricsCollector{},
		logger:              NoopLogger(),
		limits:              column.DefaultLimits(),
		similarityCacheSize: similarity.DefaultCacheSize,
		adjustingRate:       DefaultAdjustingEventRate,
		adjustingBurst:      1,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
