package coltab

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var m map[string]any
		require.NoError(t, dec.Decode(&m))
		out = append(out, m)
	}
	return out
}

func TestLogger_Derivation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := testutil.NewTokenDeriver("tokens", "v1", deriver.CostFixed)
	tbl := derivedTable(t, d, []string{"a", "b!"}, WithLogger(logger), WithWorkers(1))
	require.NoError(t, tbl.AwaitDerivations(t.Context()))

	var warn map[string]any
	for _, m := range decodeLogs(t, &buf) {
		assert.Equal(t, tbl.ID().String(), m["table"])
		if m["msg"] == "derivation completed with failures" {
			warn = m
		}
	}
	require.NotNil(t, warn)
	assert.Equal(t, "WARN", warn["level"])
	assert.Equal(t, "tokens", warn["column"])
	assert.EqualValues(t, 1, warn["updated"])
	assert.EqualValues(t, 1, warn["failed"])
}

func TestLogger_IgnoredRangeFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tbl := newTestTable(t, []string{"s"}, WithLogger(logger))
	_, err := tbl.AppendRows([][]any{{"x"}})
	require.NoError(t, err)
	require.NoError(t, tbl.Finalize())
	f, err := tbl.LeaseFilter()
	require.NoError(t, err)
	require.NoError(t, tbl.SetValueRangeFilter(f, 0, 0, 1, false))

	var found bool
	for _, m := range decodeLogs(t, &buf) {
		if m["msg"] == "value range filter ignored" {
			found = true
			assert.Equal(t, "s", m["column"])
		}
	}
	assert.True(t, found)
}

func TestLogger_Constructors(t *testing.T) {
	for _, l := range []*Logger{NewLogger(nil), NewJSONLogger(slog.LevelInfo), NewTextLogger(slog.LevelInfo), NoopLogger()} {
		require.NotNil(t, l)
		assert.NotNil(t, l.WithColumn("c").Logger)
	}
}
