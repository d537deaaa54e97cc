package coltab

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coltab/internal/column"
	"github.com/hupe1980/coltab/internal/derive"
	"github.com/hupe1980/coltab/internal/resource"
	"github.com/hupe1980/coltab/internal/row"
)

// DerivationStat is the outcome of the most recent drained run of a derived
// column.
type DerivationStat struct {
	Updated int64
	Errors  int64
	// Err is a *DeriverError when Errors > 0.
	Err error
}

// UpdateDerivations marks derived columns with missing or outdated values
// incomplete and launches the pipeline. It returns immediately; use
// AwaitDerivations to wait for completion.
func (t *Table) UpdateDerivations() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	if !t.finalized {
		return nil
	}
	t.refreshIncompleteLocked()
	t.startDerivationsLocked()
	return nil
}

// RefreshDeriverVersions compares the stamped version of every derived
// column with its deriver's current version. Only columns whose deriver
// changed are marked incomplete; their indexes are returned.
func (t *Table) RefreshDeriverVersions() ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}

	var stale []int
	t.metaMu.Lock()
	for i, c := range t.columns {
		if c.IsDerived() && c.Binding.Stale() {
			markIncomplete(c.Binding)
			stale = append(stale, i)
		}
	}
	t.metaMu.Unlock()

	if len(stale) > 0 {
		t.startDerivationsLocked()
	}
	return stale, nil
}

// AwaitDerivations blocks until the running pipeline generation ends. It
// returns the error that aborted the generation, if any.
func (t *Table) AwaitDerivations(ctx context.Context) error {
	err := t.pipeline.Wait(ctx)
	if errors.Is(err, derive.ErrAborted) {
		t.log.LogDerivationAborted(ctx, err)
	}
	return err
}

// DerivationStats returns the outcome of the most recent run per derived
// column name.
func (t *Table) DerivationStats() map[string]DerivationStat {
	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	return maps.Clone(t.stats)
}

// refreshIncompleteLocked marks derived columns that have rows with parent
// data but no value, or a stale version.
func (t *Table) refreshIncompleteLocked() {
	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	for i, c := range t.columns {
		if !c.IsDerived() || c.Binding.Incomplete {
			continue
		}
		if c.Binding.Stale() || t.missingValues(i, c.Parent) {
			markIncomplete(c.Binding)
		}
	}
}

func (t *Table) missingValues(col, parent int) bool {
	for _, r := range t.rows {
		if r.Cell(col) == nil && !r.IsEmpty(parent) {
			return true
		}
	}
	return false
}

func markIncomplete(b *column.Binding) {
	b.Incomplete = true
	b.Epoch++
}

// invalidateDependentsLocked clears the derived values computed from a
// changed cell. A running generation keeps the columns incomplete through
// the epoch guard; the dirty set re-clears values a worker may have stored
// from the old payload.
func (t *Table) invalidateDependentsLocked(r *row.Row, col int) {
	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	for i, c := range t.columns {
		if !c.IsDerived() || (c.Parent != col && !containsInt(c.Binding.Aux, col)) {
			continue
		}
		t.clearDerived(r, i)
		if c.Binding.Dirty == nil {
			c.Binding.Dirty = roaring.New()
		}
		c.Binding.Dirty.Add(uint32(r.ID()))
		markIncomplete(c.Binding)
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func (t *Table) clearDerived(r *row.Row, col int) {
	if v := r.Cell(col); v != nil {
		t.res.ReleaseMemory(resource.SizeOf(v))
		r.SetCell(col, nil)
	}
}

// haltLocked stops the pipeline and clears values of dirty rows.
func (t *Table) haltLocked() {
	t.pipeline.Halt()

	t.metaMu.Lock()
	defer t.metaMu.Unlock()
	for i, c := range t.columns {
		if !c.IsDerived() || c.Binding.Dirty == nil {
			continue
		}
		for _, id := range c.Binding.Dirty.ToArray() {
			if int(id) < len(t.byID) {
				t.clearDerived(t.byID[id], i)
			}
		}
		c.Binding.Dirty = nil
	}
}

// startDerivationsLocked launches a generation over all incomplete derived
// columns.
func (t *Table) startDerivationsLocked() {
	if !t.finalized || t.closed {
		return
	}
	t.haltLocked()

	var jobs []derive.Job
	t.metaMu.Lock()
	for i, c := range t.columns {
		if !c.IsDerived() || !c.Binding.Incomplete {
			continue
		}
		b := c.Binding
		jobs = append(jobs, derive.Job{
			Key:     c.Name,
			Column:  i,
			Parent:  c.Parent,
			Aux:     b.Aux,
			Deriver: b.Deriver,
			Stale:   b.Stale(),
			Epoch:   b.Epoch,
			Version: b.Deriver.Version(),
		})
	}
	t.metaMu.Unlock()

	if len(jobs) == 0 {
		return
	}
	t.genStart.Store(time.Now().UnixNano())
	t.pipeline.Start(t.rows, jobs)
}

// onColumnDone runs on a pipeline worker. It must not take t.mu.
func (t *Table) onColumnDone(res derive.Result) {
	job := res.Job

	t.metaMu.Lock()
	if c := t.columns[job.Column]; c.Binding != nil {
		// A newer epoch means the column was re-dirtied meanwhile.
		if c.Binding.Epoch == job.Epoch {
			c.Binding.Incomplete = false
		}
		c.Binding.Version = job.Version
	}
	stat := DerivationStat{Updated: res.Updated, Errors: res.Errors}
	if res.Errors > 0 {
		stat.Err = &DeriverError{Column: job.Key, Count: res.Errors, Sample: res.Sample}
	}
	t.stats[job.Key] = stat
	t.metaMu.Unlock()

	duration := time.Since(time.Unix(0, t.genStart.Load()))
	t.opts.metricsCollector.RecordDerivation(job.Key, res.Updated, res.Errors, duration)
	t.log.LogDerivation(context.Background(), job.Key, res.Updated, res.Errors, stat.Err)

	if res.Updated > 0 || res.Errors > 0 {
		t.sim.Invalidate()
		e := t.event(EventColumnDataChanged)
		e.Column = job.Column
		t.bus.Post(e)
	}
}
