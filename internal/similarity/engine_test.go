package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
	"github.com/hupe1980/coltab/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func derivedRows(t *testing.T, d deriver.Deriver, parents ...string) []*row.Row {
	t.Helper()
	rows := make([]*row.Row, len(parents))
	scratch := d.NewScratch()
	for i, p := range parents {
		rows[i] = row.New(model.RowID(i), 1)
		if p == "" {
			continue
		}
		v, err := d.Create(scratch, deriver.Source{Parent: []byte(p)})
		require.NoError(t, err)
		rows[i].SetCell(0, v)
	}
	return rows
}

func TestScore_Value(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostFixed)
	rows := derivedRows(t, d, "c n", "c", "", "o s")

	e := New(Config{Workers: 2})
	scores, rep, err := e.Score(t.Context(), rows, 0, "fp", Reference{Value: testutil.TokenSet{"c", "n"}}, d)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, scores[0], 1e-6)
	assert.InDelta(t, 0.5, scores[1], 1e-6)
	assert.True(t, math.IsNaN(float64(scores[2])))
	assert.InDelta(t, 0.0, scores[3], 1e-6)
	assert.Equal(t, Report{Scored: 3, Missing: 1}, rep)
}

func TestScore_SourceAndCache(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostExpensive)
	rows := derivedRows(t, d, "c n", "c")
	creates := d.Creates()

	e := New(Config{})
	ref := Reference{Source: &deriver.Source{Parent: []byte("n c")}}

	first, rep, err := e.Score(t.Context(), rows, 0, "fp", ref, d)
	require.NoError(t, err)
	assert.False(t, rep.Cached)
	assert.Equal(t, creates+1, d.Creates())

	// Same canonical identity, different spelling.
	ref = Reference{Source: &deriver.Source{Parent: []byte("c n")}}
	second, rep, err := e.Score(t.Context(), rows, 0, "fp", ref, d)
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.Equal(t, first, second)
	assert.Equal(t, creates+1, d.Creates())

	e.Invalidate()
	assert.Zero(t, e.CacheLen())
	_, rep, err = e.Score(t.Context(), rows, 0, "fp", ref, d)
	require.NoError(t, err)
	assert.False(t, rep.Cached)
}

func TestScore_CacheFollowsRowIDs(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostExpensive)
	rows := derivedRows(t, d, "c n", "o", "c")

	e := New(Config{})
	ref := Reference{Source: &deriver.Source{Parent: []byte("c n")}}

	_, rep, err := e.Score(t.Context(), rows, 0, "fp", ref, d)
	require.NoError(t, err)
	require.False(t, rep.Cached)

	reordered := []*row.Row{rows[1], rows[2], rows[0]}
	scores, rep, err := e.Score(t.Context(), reordered, 0, "fp", ref, d)
	require.NoError(t, err)
	assert.True(t, rep.Cached)
	assert.InDelta(t, 0.0, scores[0], 1e-6)
	assert.InDelta(t, 0.5, scores[1], 1e-6)
	assert.InDelta(t, 1.0, scores[2], 1e-6)
}

func TestScore_CheapDeriversAreNotCached(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostVariable)
	rows := derivedRows(t, d, "c")

	e := New(Config{})
	ref := Reference{Source: &deriver.Source{Parent: []byte("c")}}
	for range 2 {
		_, rep, err := e.Score(t.Context(), rows, 0, "fp", ref, d)
		require.NoError(t, err)
		assert.False(t, rep.Cached)
	}
	assert.Zero(t, e.CacheLen())
}

func TestScore_EvictsOldestInsertion(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostExpensive)
	rows := derivedRows(t, d, "c n", "o")
	e := New(Config{CacheSize: 2})

	score := func(parent string) bool {
		_, rep, err := e.Score(t.Context(), rows, 0, "fp", Reference{Source: &deriver.Source{Parent: []byte(parent)}}, d)
		require.NoError(t, err)
		return rep.Cached
	}

	assert.False(t, score("a"))
	assert.False(t, score("b"))
	// A hit does not refresh "a".
	assert.True(t, score("a"))
	assert.False(t, score("c"))

	assert.True(t, score("b"))
	assert.True(t, score("c"))
	assert.False(t, score("a"))
}

type nanDeriver struct {
	*testutil.TokenDeriver
}

func (d nanDeriver) Similarity(a, b any) float32 {
	if _, ok := b.(string); ok {
		return float32(math.NaN())
	}
	return d.TokenDeriver.Similarity(a, b)
}

func (d nanDeriver) Clone() deriver.Deriver { return d }

func TestScore_TalliesErrors(t *testing.T) {
	d := nanDeriver{testutil.NewTokenDeriver("fp", "1", deriver.CostFixed)}
	rows := derivedRows(t, d, "c", "n", "")
	rows[1].SetCell(0, "not a token set")

	e := New(Config{})
	_, rep, err := e.Score(t.Context(), rows, 0, "fp", Reference{Value: testutil.TokenSet{"c"}}, d)
	require.NoError(t, err)
	assert.Equal(t, Report{Scored: 1, Missing: 1, Errors: 1}, rep)
}

func TestScore_Errors(t *testing.T) {
	d := testutil.NewTokenDeriver("fp", "1", deriver.CostFixed)
	rows := derivedRows(t, d, "c")
	e := New(Config{})

	_, _, err := e.Score(t.Context(), rows, 0, "fp", Reference{}, d)
	assert.ErrorIs(t, err, ErrNoReference)

	_, _, err = e.Score(t.Context(), rows, 0, "fp", Reference{Source: &deriver.Source{Parent: []byte("bad!")}}, d)
	assert.ErrorIs(t, err, testutil.ErrBadInput)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, _, err = e.Score(ctx, rows, 0, "fp", Reference{Value: testutil.TokenSet{"c"}}, d)
	assert.ErrorIs(t, err, context.Canceled)
}
