package prom

import (
	"testing"

	"github.com/hupe1980/coltab"
	"github.com/hupe1980/coltab/deriver"
	ctestutil "github.com/hupe1980/coltab/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(WithRegisterer(reg), WithNamespace("test"))
	require.NoError(t, err)

	d := ctestutil.NewTokenDeriver("tokens", "v1", deriver.CostFixed)
	tbl, err := coltab.New([]string{"text", "tokens"}, coltab.WithMetricsCollector(c))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })

	_, err = tbl.AppendRows([][]any{{"a b"}, {"c"}, {"bad!"}})
	require.NoError(t, err)
	require.NoError(t, tbl.BindDeriver(1, 0, d))
	require.NoError(t, tbl.Finalize())
	require.NoError(t, tbl.AwaitDerivations(t.Context()))

	_, err = tbl.DeleteRows(2)
	require.NoError(t, err)

	assert.InDelta(t, 2, testutil.ToFloat64(c.derived.WithLabelValues("tokens")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.derivErrors.WithLabelValues("tokens")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.removed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.visibleRows), 0)

	n, err := testutil.GatherAndCount(reg, "test_rows_removed_total", "test_visible_rows")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(WithRegisterer(reg))
	require.NoError(t, err)

	_, err = New(WithRegisterer(reg))
	require.Error(t, err)
}

func TestCollector_Similarity(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(WithRegisterer(reg))
	require.NoError(t, err)

	c.RecordSimilarity(10, true, 0, nil)
	c.RecordSimilarity(10, false, 0, nil)
	c.RecordSimilarity(10, false, 0, assert.AnError)

	assert.InDelta(t, 1, testutil.ToFloat64(c.similarity.WithLabelValues("hit")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(c.similarity.WithLabelValues("miss")), 0)
}
