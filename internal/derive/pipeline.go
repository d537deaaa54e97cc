package derive

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/resource"
	"github.com/hupe1980/coltab/internal/row"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrAborted is returned by Wait when a fatal error stopped the generation.
var ErrAborted = errors.New("derivation aborted")

// Job describes one derived column to (re)compute.
type Job struct {
	// Key identifies the column across generations.
	Key     string
	Column  int
	Parent  int
	Aux     []int
	Deriver deriver.Deriver
	// Stale forces recomputation of values that are already present.
	Stale bool
	// Epoch is the column's incomplete epoch at snapshot time.
	Epoch uint64
	// Version is the deriver version at snapshot time.
	Version string
}

// Result reports the outcome of one drained column.
type Result struct {
	Job     Job
	Updated int64
	Errors  int64
	// Sample is the first per-cell error, if any.
	Sample error
}

// Config configures a Pipeline.
type Config struct {
	// Workers is the number of worker goroutines. If 0, the resource
	// controller's worker limit is used.
	Workers int
	// Resources provides worker slots and derived-value memory accounting.
	Resources *resource.Controller
	// OnColumnDone is called once per job when all of its pairs have been
	// processed. It runs on a worker goroutine.
	OnColumnDone func(Result)
}

// Pipeline runs at most one derivation generation at a time.
type Pipeline struct {
	cfg Config

	mu  sync.Mutex
	gen *generation
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

type tally struct {
	updated atomic.Int64
	errors  atomic.Int64
	sample  atomic.Pointer[error]
}

type generation struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	rows      []*row.Row
	jobs      []Job
	next      atomic.Int64
	remaining []atomic.Int64
	tallies   *xsync.MapOf[string, *tally]

	errMu sync.Mutex
	err   error
}

func (g *generation) abort(err error) {
	g.errMu.Lock()
	if g.err == nil {
		g.err = err
	}
	g.errMu.Unlock()
	g.cancel()
}

func (g *generation) result() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.err
}

// Start launches a generation over rows. A running generation is halted
// first. Start returns immediately.
func (p *Pipeline) Start(rows []*row.Row, jobs []Job) {
	p.Halt()

	if len(jobs) == 0 || len(rows) == 0 {
		p.mu.Lock()
		p.gen = nil
		p.mu.Unlock()
		return
	}

	jobs = slices.Clone(jobs)
	slices.SortStableFunc(jobs, func(a, b Job) int {
		return int(a.Deriver.Cost()) - int(b.Deriver.Cost())
	})

	ctx, cancel := context.WithCancel(context.Background())
	g := &generation{
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		rows:      rows,
		jobs:      jobs,
		remaining: make([]atomic.Int64, len(jobs)),
		tallies:   xsync.NewMapOf[string, *tally](),
	}
	for i := range g.remaining {
		g.remaining[i].Store(int64(len(rows)))
		g.tallies.Store(jobs[i].Key, &tally{})
	}

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = p.cfg.Resources.MaxWorkers()
	}
	workers = min(workers, len(rows)*len(jobs))

	p.mu.Lock()
	p.gen = g
	p.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			p.work(g)
		}()
	}
	go func() {
		wg.Wait()
		cancel()
		close(g.done)
	}()
}

// Running reports whether a generation is in progress.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	g := p.gen
	p.mu.Unlock()
	if g == nil {
		return false
	}
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

// Halt requests cancellation of the running generation and joins it.
func (p *Pipeline) Halt() {
	p.mu.Lock()
	g := p.gen
	p.mu.Unlock()
	if g == nil {
		return
	}
	g.cancel()
	<-g.done
}

// Wait blocks until the current generation ends and returns its fatal error.
func (p *Pipeline) Wait(ctx context.Context) error {
	p.mu.Lock()
	g := p.gen
	p.mu.Unlock()
	if g == nil {
		return nil
	}
	select {
	case <-g.done:
		return g.result()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tallies returns the per-column counters of the most recent generation.
func (p *Pipeline) Tallies() map[string]Result {
	p.mu.Lock()
	g := p.gen
	p.mu.Unlock()
	if g == nil {
		return nil
	}
	out := make(map[string]Result, len(g.jobs))
	for _, job := range g.jobs {
		out[job.Key] = g.snapshot(job)
	}
	return out
}

func (g *generation) snapshot(job Job) Result {
	res := Result{Job: job}
	if t, ok := g.tallies.Load(job.Key); ok {
		res.Updated = t.updated.Load()
		res.Errors = t.errors.Load()
		if e := t.sample.Load(); e != nil {
			res.Sample = *e
		}
	}
	return res
}

type workerState struct {
	derivers []deriver.Deriver
	scratch  []any
}

func (p *Pipeline) work(g *generation) {
	res := p.cfg.Resources
	if err := res.AcquireWorker(g.ctx); err != nil {
		return
	}
	defer res.ReleaseWorker()

	ws := workerState{
		derivers: make([]deriver.Deriver, len(g.jobs)),
		scratch:  make([]any, len(g.jobs)),
	}
	n := int64(len(g.rows))
	total := n * int64(len(g.jobs))

	for g.ctx.Err() == nil {
		i := g.next.Add(1) - 1
		if i >= total {
			return
		}
		j := int(i / n)
		if err := p.derive(g, &ws, j, g.rows[i%n]); err != nil {
			g.abort(err)
			return
		}
		if g.remaining[j].Add(-1) == 0 && p.cfg.OnColumnDone != nil {
			p.cfg.OnColumnDone(g.snapshot(g.jobs[j]))
		}
	}
}

func (p *Pipeline) derive(g *generation, ws *workerState, j int, r *row.Row) error {
	job := g.jobs[j]
	if r.IsEmpty(job.Parent) {
		return nil
	}
	old := r.Cell(job.Column)
	if old != nil && !job.Stale {
		return nil
	}

	d := ws.derivers[j]
	if d == nil {
		d = job.Deriver.Clone()
		ws.derivers[j] = d
		ws.scratch[j] = d.NewScratch()
	}

	src := deriver.Source{Parent: r.Bytes(job.Parent)}
	if d.NeedsAuxiliaryData() {
		src.Aux = make([][]byte, len(job.Aux))
		for k, c := range job.Aux {
			src.Aux[k] = r.Bytes(c)
		}
	}

	t, _ := g.tallies.Load(job.Key)
	v, err := d.Create(ws.scratch[j], src)
	if err != nil {
		if errors.Is(err, deriver.ErrFatal) {
			return fmt.Errorf("%w: column %s: %w", ErrAborted, job.Key, err)
		}
		r.SetCell(job.Column, nil)
		p.cfg.Resources.ReleaseMemory(resource.SizeOf(old))
		t.errors.Add(1)
		t.sample.CompareAndSwap(nil, &err)
		return nil
	}

	if err := p.cfg.Resources.AcquireMemory(resource.SizeOf(v)); err != nil {
		return fmt.Errorf("%w: column %s: %w", ErrAborted, job.Key, err)
	}
	r.SetCell(job.Column, v)
	p.cfg.Resources.ReleaseMemory(resource.SizeOf(old))
	t.updated.Add(1)
	return nil
}
