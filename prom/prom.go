// Package prom exports table metrics to Prometheus.
package prom

import (
	"time"

	"github.com/hupe1980/coltab"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes all metric names.
const DefaultNamespace = "coltab"

var _ coltab.MetricsCollector = (*Collector)(nil)

// Collector implements coltab.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	derived     *prometheus.CounterVec
	derivErrors *prometheus.CounterVec
	similarity  *prometheus.CounterVec
	removed     prometheus.Counter
	visibleRows prometheus.Gauge
	generation  prometheus.Gauge
}

type options struct {
	namespace  string
	registerer prometheus.Registerer
}

// Option configures a Collector.
type Option func(*options)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithRegisterer registers the metrics with r instead of the default
// registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// New creates and registers a Collector.
func New(optFns ...Option) (*Collector, error) {
	o := options{
		namespace:  DefaultNamespace,
		registerer: prometheus.DefaultRegisterer,
	}
	for _, fn := range optFns {
		fn(&o)
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: o.namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of table operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		derived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "derived_values_total",
			Help:      "Total derived values computed",
		}, []string{"column"}),
		derivErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "derivation_errors_total",
			Help:      "Total cells whose derivation failed",
		}, []string{"column"}),
		similarity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "similarity_runs_total",
			Help:      "Total similarity runs",
		}, []string{"cache"}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: o.namespace,
			Name:      "rows_removed_total",
			Help:      "Total rows removed by compaction",
		}),
		visibleRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "visible_rows",
			Help:      "Number of rows passing all active filters",
		}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: o.namespace,
			Name:      "visibility_generation",
			Help:      "Generation of the most recent visibility compilation",
		}),
	}

	for _, m := range []prometheus.Collector{
		c.opLatency, c.derived, c.derivErrors, c.similarity,
		c.removed, c.visibleRows, c.generation,
	} {
		if err := o.registerer.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordFinalize implements coltab.MetricsCollector.
func (c *Collector) RecordFinalize(rows, columns int, d time.Duration) {
	c.opLatency.WithLabelValues("finalize", "success").Observe(d.Seconds())
}

// RecordDerivation implements coltab.MetricsCollector.
func (c *Collector) RecordDerivation(column string, updated, failed int64, d time.Duration) {
	st := "success"
	if failed > 0 {
		st = "error"
	}
	c.opLatency.WithLabelValues("derive", st).Observe(d.Seconds())
	c.derived.WithLabelValues(column).Add(float64(updated))
	c.derivErrors.WithLabelValues(column).Add(float64(failed))
}

// RecordSort implements coltab.MetricsCollector.
func (c *Collector) RecordSort(rows int, d time.Duration) {
	c.opLatency.WithLabelValues("sort", "success").Observe(d.Seconds())
}

// RecordSimilarity implements coltab.MetricsCollector.
func (c *Collector) RecordSimilarity(rows int, cached bool, d time.Duration, err error) {
	c.opLatency.WithLabelValues("similarity", status(err)).Observe(d.Seconds())
	cache := "miss"
	if cached {
		cache = "hit"
	}
	c.similarity.WithLabelValues(cache).Inc()
}

// RecordCompaction implements coltab.MetricsCollector.
func (c *Collector) RecordCompaction(removed int, d time.Duration) {
	c.opLatency.WithLabelValues("compact", "success").Observe(d.Seconds())
	c.removed.Add(float64(removed))
}

// RecordVisibility implements coltab.MetricsCollector.
func (c *Collector) RecordVisibility(visible int, generation uint64) {
	c.visibleRows.Set(float64(visible))
	c.generation.Set(float64(generation))
}
