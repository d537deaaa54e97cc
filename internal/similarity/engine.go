// Package similarity scores every row of a derived column against one
// reference value.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/coltab/codec"
	"github.com/hupe1980/coltab/deriver"
	"github.com/hupe1980/coltab/internal/row"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is the number of cached score vectors.
const DefaultCacheSize = 16

// ErrNoReference is returned when a Reference carries neither value nor source.
var ErrNoReference = errors.New("similarity: no reference")

// minPartition is the smallest number of rows scored by one goroutine.
const minPartition = 256

// Config configures an Engine.
type Config struct {
	// Workers bounds parallel partitions. If 0, GOMAXPROCS is used.
	Workers int
	// CacheSize bounds cached score vectors of expensive derivers.
	// If 0, DefaultCacheSize is used; negative disables the cache.
	CacheSize int
	// Codec encodes reference sources without a Canonicalizer.
	Codec codec.Codec
}

// Reference is the object all rows are compared against: either an already
// derived value or a raw source that is derived on the fly.
type Reference struct {
	Value  any
	Source *deriver.Source
}

// Report summarizes one scoring run.
type Report struct {
	Scored  int
	Missing int
	// Errors counts rows holding a value that could not be scored.
	Errors int
	Cached bool
}

// Engine computes similarity vectors.
type Engine struct {
	cfg   Config
	cache *lru.Cache[uint64, []float32]
}

// New creates an engine.
func New(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	e := &Engine{cfg: cfg}
	if cfg.CacheSize > 0 {
		e.cache, _ = lru.New[uint64, []float32](cfg.CacheSize)
	}
	return e
}

// Invalidate drops all cached results.
func (e *Engine) Invalidate() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// CacheLen returns the number of cached score vectors.
func (e *Engine) CacheLen() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}

// Score compares ref against the derived value of column in every row. key
// identifies the column in cache keys. Rows without a value score NaN.
func (e *Engine) Score(ctx context.Context, rows []*row.Row, column int, key string, ref Reference, d deriver.Deriver) ([]float32, Report, error) {
	cacheKey, cacheable, err := e.cacheKey(key, ref, d)
	if err != nil {
		return nil, Report{}, err
	}
	if cacheable {
		// Peek keeps insertion order as the eviction order.
		if byID, ok := e.cache.Peek(cacheKey); ok {
			if scores, ok := fromIDOrder(byID, rows); ok {
				rep := summarize(scores, rows, column)
				rep.Cached = true
				return scores, rep, nil
			}
		}
	}

	refValue := ref.Value
	if refValue == nil {
		if ref.Source == nil {
			return nil, Report{}, ErrNoReference
		}
		refValue, err = d.Clone().Create(d.NewScratch(), *ref.Source)
		if err != nil {
			return nil, Report{}, fmt.Errorf("similarity: create reference: %w", err)
		}
	}

	scores := make([]float32, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)

	size := max(minPartition, (len(rows)+e.cfg.Workers-1)/e.cfg.Workers)
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		g.Go(func() error {
			local := d.Clone()
			for i := start; i < end; i++ {
				if i%64 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				v := rows[i].Cell(column)
				if v == nil {
					scores[i] = float32(math.NaN())
					continue
				}
				scores[i] = local.Similarity(refValue, v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Report{}, err
	}

	if cacheable {
		e.cache.Add(cacheKey, toIDOrder(scores, rows))
	}
	return scores, summarize(scores, rows, column), nil
}

func (e *Engine) cacheKey(key string, ref Reference, d deriver.Deriver) (uint64, bool, error) {
	if e.cache == nil || ref.Source == nil || d.Cost() != deriver.CostExpensive {
		return 0, false, nil
	}
	id, err := codec.Identity(e.cfg.Codec, d, *ref.Source)
	if err != nil {
		return 0, false, err
	}
	h := xxhash.New()
	_, _ = h.WriteString(key)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(d.Name())
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(d.Version())
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id)
	return h.Sum64(), true, nil
}

// toIDOrder re-indexes display-ordered scores by row id, so cached vectors
// survive reordering.
func toIDOrder(scores []float32, rows []*row.Row) []float32 {
	byID := make([]float32, len(rows))
	for i, r := range rows {
		if id := int(r.ID()); id < len(byID) {
			byID[id] = scores[i]
		}
	}
	return byID
}

// fromIDOrder maps a cached vector back to display order. ok is false when
// the row set no longer matches.
func fromIDOrder(byID []float32, rows []*row.Row) ([]float32, bool) {
	if len(byID) != len(rows) {
		return nil, false
	}
	scores := make([]float32, len(rows))
	for i, r := range rows {
		id := int(r.ID())
		if id >= len(byID) {
			return nil, false
		}
		scores[i] = byID[id]
	}
	return scores, true
}

func summarize(scores []float32, rows []*row.Row, column int) Report {
	var rep Report
	for i, s := range scores {
		switch {
		case rows[i].Cell(column) == nil:
			rep.Missing++
		case math.IsNaN(float64(s)):
			rep.Errors++
		default:
			rep.Scored++
		}
	}
	return rep
}
