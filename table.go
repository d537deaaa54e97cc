package coltab

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/coltab/internal/bus"
	"github.com/hupe1980/coltab/internal/column"
	"github.com/hupe1980/coltab/internal/derive"
	"github.com/hupe1980/coltab/internal/flags"
	"github.com/hupe1980/coltab/internal/resource"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/internal/similarity"
	"github.com/hupe1980/coltab/internal/visibility"
	"github.com/hupe1980/coltab/model"
)

type (
	// RowID is the stable identity of a row. Identities are contiguous and
	// only change when rows are removed.
	RowID = model.RowID
	// FlagID is a bit of the row flag word.
	FlagID = model.FlagID
)

// FlagSelected is the reserved selection bit.
const FlagSelected = model.FlagSelected

// View is a snapshot of the visible rows in display order.
type View struct {
	Rows       []RowID
	Generation uint64
}

// Table is an in-memory columnar table.
//
// All structural mutation is serialized by one mutex. Derived columns are
// computed by a background pipeline that is halted before the row array is
// resized or reordered. Events are delivered on a separate goroutine.
type Table struct {
	id   uuid.UUID
	opts options
	log  *Logger

	mu            sync.Mutex
	closed        bool
	finalized     bool
	rows          []*row.Row // display order
	byID          []*row.Row // indexed by RowID
	columns       []*column.Column
	pool          *flags.Pool
	compiler      *visibility.Compiler
	visible       *visibility.Index
	lastAscending int

	// metaMu guards column Binding state and stats. It is never held while
	// the pipeline is halted or awaited.
	metaMu   sync.Mutex
	stats    map[string]DerivationStat
	genStart atomic.Int64

	res      *resource.Controller
	pipeline *derive.Pipeline
	sim      *similarity.Engine
	bus      *bus.Bus[Event]
}

// New creates an empty table with the given columns.
func New(columns []string, optFns ...Option) (*Table, error) {
	opts := applyOptions(optFns)

	t := &Table{
		id:            uuid.New(),
		opts:          opts,
		pool:          flags.NewPool(),
		compiler:      visibility.NewCompiler(),
		lastAscending: -1,
		stats:         make(map[string]DerivationStat),
		res: resource.NewController(resource.Config{
			MemoryLimitBytes: opts.memoryLimit,
			MaxWorkers:       opts.maxWorkers,
		}),
	}
	t.log = opts.logger.WithTable(t.id.String())

	t.pipeline = derive.New(derive.Config{
		Workers:      opts.workers,
		Resources:    t.res,
		OnColumnDone: t.onColumnDone,
	})
	t.sim = similarity.New(similarity.Config{
		Workers:   opts.workers,
		CacheSize: opts.similarityCacheSize,
		Codec:     opts.codec,
	})
	t.bus = bus.New(bus.Config[Event]{
		Adjusting: isAdjusting,
		Rate:      opts.adjustingRate,
		Burst:     opts.adjustingBurst,
	})

	if _, err := t.appendColumnsLocked(columns); err != nil {
		t.bus.Close()
		return nil, err
	}
	t.compileLocked()
	return t, nil
}

// ID returns the table identity carried by all events.
func (t *Table) ID() uuid.UUID { return t.id }

// Close halts background work and stops event delivery after the queued
// events have been delivered.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.pipeline.Halt()
	t.mu.Unlock()

	t.bus.Close()
	return nil
}

// Subscribe registers an event listener.
func (t *Table) Subscribe(l Listener) (unsubscribe func()) {
	return t.bus.Subscribe(bus.Listener[Event](l))
}

// SyncEvents blocks until every event posted before the call was delivered.
// It must not be called from a listener.
func (t *Table) SyncEvents(ctx context.Context) error {
	if err := t.bus.Sync(ctx); err != nil {
		if errors.Is(err, bus.ErrClosed) {
			return ErrClosed
		}
		return err
	}
	return nil
}

// MemoryUsage returns the bytes held by derived values.
func (t *Table) MemoryUsage() int64 { return t.res.MemoryUsage() }

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// RowIDs returns all row identities in display order.
func (t *Table) RowIDs() []RowID {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]RowID, len(t.rows))
	for i, r := range t.rows {
		ids[i] = r.ID()
	}
	return ids
}

// AddRows appends n rows with empty cells and returns the first new id.
func (t *Table) AddRows(n int) (RowID, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative row count %d", ErrInvalidRow, n)
	}
	return t.AppendRows(make([][]any, n))
}

// AppendRows appends one row per element of cells. Each element holds the
// payloads of the leading columns; string payloads are stored as bytes.
func (t *Table) AppendRows(cells [][]any) (RowID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return 0, err
	}
	for i, vals := range cells {
		if len(vals) > len(t.columns) {
			return 0, fmt.Errorf("%w: row %d has %d cells for %d columns", ErrInvalidColumn, i, len(vals), len(t.columns))
		}
	}
	if len(cells) == 0 {
		return RowID(len(t.byID)), nil
	}

	t.haltLocked()

	from := len(t.rows)
	first := RowID(len(t.byID))
	for i, vals := range cells {
		r := row.New(first+RowID(i), len(t.columns))
		for col, v := range vals {
			r.SetCell(col, normalizeCell(v))
		}
		t.rows = append(t.rows, r)
		t.byID = append(t.byID, r)
	}

	if t.finalized {
		for i, c := range t.columns {
			c.Extend(t.rows, i, from)
		}
		t.refreshIncompleteLocked()
	}
	t.lastAscending = -1
	t.sim.Invalidate()
	t.compileLocked()
	t.startDerivationsLocked()

	e := t.event(EventRowsAdded)
	e.First = int(first)
	t.bus.Post(e)
	return first, nil
}

// SetCell stores a payload. A nil value empties the cell. Derived values of
// columns depending on the cell are cleared and recomputed by the next
// UpdateDerivations.
func (t *Table) SetCell(id RowID, col int, v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	r, err := t.rowLocked(id)
	if err != nil {
		return err
	}
	if err := t.checkColumn(col); err != nil {
		return err
	}
	if t.columns[col].IsDerived() {
		return fmt.Errorf("%w: %q holds derived values", ErrInvalidColumn, t.columns[col].Name)
	}

	r.SetCell(col, normalizeCell(v))
	t.invalidateDependentsLocked(r, col)
	t.reanalyzeLocked(col)
	t.sim.Invalidate()

	e := t.event(EventColumnDataChanged)
	e.Column, e.Row = col, int(id)
	t.bus.Post(e)
	return nil
}

// Cell returns the payload of a cell.
func (t *Table) Cell(id RowID, col int) (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, err := t.rowLocked(id)
	if err != nil {
		return nil, err
	}
	if err := t.checkColumn(col); err != nil {
		return nil, err
	}
	return r.Cell(col), nil
}

// Value returns the numeric projection of a cell; NaN if the cell is empty
// or not numeric.
func (t *Table) Value(id RowID, col int) (float32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, err := t.rowLocked(id)
	if err != nil {
		return float32(math.NaN()), err
	}
	if err := t.checkColumn(col); err != nil {
		return float32(math.NaN()), err
	}
	return r.Value(col), nil
}

// DisplayValue returns the projection converted back into display units,
// e.g. exponentiated for logarithmic columns.
func (t *Table) DisplayValue(id RowID, col int) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, err := t.rowLocked(id)
	if err != nil {
		return math.NaN(), err
	}
	if err := t.checkColumn(col); err != nil {
		return math.NaN(), err
	}
	return t.columns[col].DisplayValue(r.Value(col)), nil
}

// Finalize analyzes all columns, compiles visibility, marks derived columns
// that need work and launches the derivation pipeline.
func (t *Table) Finalize() error {
	start := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}

	t.haltLocked()
	for i, c := range t.columns {
		c.Analyze(t.rows, i)
	}
	t.finalized = true
	t.sim.Invalidate()
	t.compileLocked()
	t.refreshIncompleteLocked()
	t.startDerivationsLocked()

	t.opts.metricsCollector.RecordFinalize(len(t.rows), len(t.columns), time.Since(start))
	t.log.LogFinalize(context.Background(), len(t.rows), len(t.columns), time.Since(start))
	t.bus.Post(t.event(EventTableReplaced))
	return nil
}

// Visible returns the visible rows in display order.
func (t *Table) Visible() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return View{Rows: t.visible.IDs(), Generation: t.visible.Generation}
}

// IsVisible reports whether a row passes all active exclusion filters.
func (t *Table) IsVisible(id RowID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visible.Contains(id)
}

func (t *Table) checkOpen() error {
	if t.closed {
		return ErrClosed
	}
	return nil
}

func (t *Table) rowLocked(id RowID) (*row.Row, error) {
	if int(id) >= len(t.byID) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, id)
	}
	return t.byID[id], nil
}

func (t *Table) checkColumn(col int) error {
	if col < 0 || col >= len(t.columns) {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return nil
}

func (t *Table) indexOfLocked(name string) (int, bool) {
	i := slices.IndexFunc(t.columns, func(c *column.Column) bool { return c.Name == name })
	return i, i >= 0
}

// compileLocked rebuilds the visible index from the active exclusion mask.
func (t *Table) compileLocked() {
	t.visible = t.compiler.Compile(t.rows, t.pool.ExclusionMask())
	t.opts.metricsCollector.RecordVisibility(t.visible.Len(), t.visible.Generation)
}

func (t *Table) postExclusionChanged(adjusting bool) {
	e := t.event(EventExclusionChanged)
	e.Generation = t.visible.Generation
	e.Adjusting = adjusting
	t.bus.Post(e)
}

func normalizeCell(v any) any {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		return []byte(x)
	case []byte:
		if len(x) == 0 {
			return nil
		}
		return x
	default:
		return v
	}
}
