package coltab

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/hupe1980/coltab/internal/similarity"
)

type (
	// Reference is the object compared against every row: a derived value
	// or a raw source derived on the fly.
	Reference = similarity.Reference
	// SimilarityReport summarizes one similarity run.
	SimilarityReport = similarity.Report
)

// ComputeSimilarity scores the derived values of col against ref and stores
// the scores in the column named target, creating it if needed. Rows without
// a derived value get an empty cell. It returns the target column index.
func (t *Table) ComputeSimilarity(ctx context.Context, col int, ref Reference, target string) (int, SimilarityReport, error) {
	start := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return -1, SimilarityReport{}, err
	}
	if err := t.checkColumn(col); err != nil {
		return -1, SimilarityReport{}, err
	}
	c := t.columns[col]
	if !c.IsDerived() {
		return -1, SimilarityReport{}, fmt.Errorf("%w: %q", ErrNotDerived, c.Name)
	}
	tc, exists := t.indexOfLocked(target)
	if exists && (tc == col || t.columns[tc].IsDerived()) {
		return -1, SimilarityReport{}, fmt.Errorf("%w: %q cannot hold scores", ErrInvalidColumn, target)
	}

	t.metaMu.Lock()
	d := c.Binding.Deriver
	t.metaMu.Unlock()

	scores, rep, err := t.sim.Score(ctx, t.rows, col, c.Name, ref, d)
	t.opts.metricsCollector.RecordSimilarity(len(t.rows), rep.Cached, time.Since(start), err)
	t.log.LogSimilarity(ctx, c.Name, rep.Scored, rep.Errors, rep.Cached, err)
	if err != nil {
		return -1, rep, err
	}

	if !exists {
		if tc, err = t.addColumnsLocked([]string{target}); err != nil {
			return -1, rep, err
		}
	}
	for i, r := range t.rows {
		var v any
		if s := scores[i]; !math.IsNaN(float64(s)) {
			v = []byte(strconv.FormatFloat(float64(s), 'f', -1, 32))
		}
		r.SetCell(tc, v)
		t.invalidateDependentsLocked(r, tc)
	}
	if t.finalized {
		t.columns[tc].Analyze(t.rows, tc)
	}
	if t.lastAscending == tc {
		t.lastAscending = -1
	}

	e := t.event(EventColumnDataChanged)
	e.Column = tc
	t.bus.Post(e)
	return tc, rep, nil
}
