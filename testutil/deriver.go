package testutil

import (
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/coltab/deriver"
)

// ErrBadInput is returned by TokenDeriver for parent payloads containing "!".
var ErrBadInput = errors.New("bad input")

// TokenSet is the derived value of TokenDeriver: sorted unique tokens.
type TokenSet []string

// SizeBytes implements resource.Sizer.
func (s TokenSet) SizeBytes() int {
	n := 0
	for _, t := range s {
		n += len(t) + 16
	}
	return n
}

type tokenState struct {
	version atomic.Pointer[string]
	creates atomic.Int64
	clones  atomic.Int64
	delay   atomic.Int64
	fatal   atomic.Bool
}

// TokenDeriver is a deterministic Deriver for tests. It splits the parent
// payload on whitespace and compares token sets with the Tanimoto coefficient.
// Clones share counters and the version.
type TokenDeriver struct {
	name  string
	cost  deriver.Cost
	aux   bool
	state *tokenState
}

var (
	_ deriver.Deriver       = (*TokenDeriver)(nil)
	_ deriver.Canonicalizer = (*TokenDeriver)(nil)
)

// NewTokenDeriver creates a TokenDeriver.
func NewTokenDeriver(name, version string, cost deriver.Cost) *TokenDeriver {
	d := &TokenDeriver{name: name, cost: cost, state: &tokenState{}}
	d.state.version.Store(&version)
	return d
}

// WithAuxiliaryData makes Create include auxiliary payload tokens.
func (d *TokenDeriver) WithAuxiliaryData() *TokenDeriver {
	d.aux = true
	return d
}

// SetVersion changes the version reported by all clones.
func (d *TokenDeriver) SetVersion(v string) { d.state.version.Store(&v) }

// SetDelay slows every Create call down.
func (d *TokenDeriver) SetDelay(delay time.Duration) { d.state.delay.Store(int64(delay)) }

// SetFatal makes every Create call fail with deriver.ErrFatal.
func (d *TokenDeriver) SetFatal(fatal bool) { d.state.fatal.Store(fatal) }

// Creates returns the number of Create calls across all clones.
func (d *TokenDeriver) Creates() int64 { return d.state.creates.Load() }

// Clones returns the number of Clone calls.
func (d *TokenDeriver) Clones() int64 { return d.state.clones.Load() }

func (d *TokenDeriver) Name() string             { return d.name }
func (d *TokenDeriver) Version() string          { return *d.state.version.Load() }
func (d *TokenDeriver) NeedsAuxiliaryData() bool { return d.aux }
func (d *TokenDeriver) Cost() deriver.Cost       { return d.cost }

// NewScratch returns a reusable token buffer.
func (d *TokenDeriver) NewScratch() any {
	buf := make([]string, 0, 16)
	return &buf
}

// Create tokenizes the parent payload.
func (d *TokenDeriver) Create(scratch any, src deriver.Source) (any, error) {
	d.state.creates.Add(1)
	if delay := time.Duration(d.state.delay.Load()); delay > 0 {
		time.Sleep(delay)
	}
	if d.state.fatal.Load() {
		return nil, deriver.ErrFatal
	}
	if strings.Contains(string(src.Parent), "!") {
		return nil, ErrBadInput
	}

	buf := scratch.(*[]string)
	*buf = append((*buf)[:0], strings.Fields(string(src.Parent))...)
	if d.aux {
		for _, a := range src.Aux {
			*buf = append(*buf, strings.Fields(string(a))...)
		}
	}
	set := slices.Clone(*buf)
	slices.Sort(set)
	return TokenSet(slices.Compact(set)), nil
}

// Similarity returns |a ∩ b| / |a ∪ b|.
func (d *TokenDeriver) Similarity(a, b any) float32 {
	sa, ok1 := a.(TokenSet)
	sb, ok2 := b.(TokenSet)
	if !ok1 || !ok2 {
		return 0
	}
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	common := 0
	i, j := 0, 0
	for i < len(sa) && j < len(sb) {
		switch strings.Compare(sa[i], sb[j]) {
		case 0:
			common++
			i++
			j++
		case -1:
			i++
		default:
			j++
		}
	}
	return float32(common) / float32(len(sa)+len(sb)-common)
}

// Clone returns an instance sharing counters and version.
func (d *TokenDeriver) Clone() deriver.Deriver {
	d.state.clones.Add(1)
	c := *d
	return &c
}

// Canonical returns the sorted token list of the parent payload.
func (d *TokenDeriver) Canonical(src deriver.Source) string {
	tokens := strings.Fields(string(src.Parent))
	slices.Sort(tokens)
	return strings.Join(slices.Compact(tokens), " ")
}
