package flags

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coltab/model"
)

var (
	// ErrPoolExhausted is returned when every dynamic bit is leased.
	ErrPoolExhausted = errors.New("flag pool exhausted")

	// ErrNotLeased is returned for operations on a bit that is not leased.
	ErrNotLeased = errors.New("flag not leased")

	// ErrNotExclusion is returned when suspending or resuming a list lease.
	ErrNotExclusion = errors.New("flag is not an exclusion filter")
)

// Kind is the purpose of a leased bit.
type Kind uint8

const (
	// KindExclusion is a filter bit that hides marked rows while active.
	KindExclusion Kind = iota + 1
	// KindList is a named row-set bit.
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindExclusion:
		return "exclusion"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Pool hands out dynamic flag bits.
type Pool struct {
	free      []model.FlagID // stack; the lowest free bit is on top
	kinds     [model.FlagWidth]Kind
	leased    model.Mask
	exclusion model.Mask
	suspended model.Mask
}

// NewPool creates a pool with all dynamic bits available.
func NewPool() *Pool {
	p := &Pool{free: make([]model.FlagID, 0, model.DynamicFlagCount)}
	for f := model.FlagWidth - 1; f >= int(model.FirstDynamicFlag); f-- {
		p.free = append(p.free, model.FlagID(f))
	}
	return p
}

// Lease allocates a bit for the given purpose.
func (p *Pool) Lease(kind Kind) (model.FlagID, error) {
	if len(p.free) == 0 {
		return 0, ErrPoolExhausted
	}
	f := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]

	p.kinds[f] = kind
	p.leased |= f.Mask()
	if kind == KindExclusion {
		p.exclusion |= f.Mask()
	}
	return f, nil
}

// Free returns a bit to the pool. The caller clears the bit on all rows.
func (p *Pool) Free(f model.FlagID) error {
	if !p.IsLeased(f) {
		return fmt.Errorf("%w: %s", ErrNotLeased, f)
	}
	p.kinds[f] = 0
	p.leased &^= f.Mask()
	p.exclusion &^= f.Mask()
	p.suspended &^= f.Mask()
	p.free = append(p.free, f)
	return nil
}

// Suspend removes an exclusion bit from the active mask without freeing it.
// Row marks stay valid so the filter can be resumed cheaply.
func (p *Pool) Suspend(f model.FlagID) error {
	if err := p.checkExclusion(f); err != nil {
		return err
	}
	p.suspended |= f.Mask()
	return nil
}

// Resume re-activates a suspended exclusion bit.
func (p *Pool) Resume(f model.FlagID) error {
	if err := p.checkExclusion(f); err != nil {
		return err
	}
	p.suspended &^= f.Mask()
	return nil
}

func (p *Pool) checkExclusion(f model.FlagID) error {
	if !p.IsLeased(f) {
		return fmt.Errorf("%w: %s", ErrNotLeased, f)
	}
	if p.kinds[f] != KindExclusion {
		return fmt.Errorf("%w: %s", ErrNotExclusion, f)
	}
	return nil
}

// IsLeased reports whether f is a currently leased dynamic bit.
func (p *Pool) IsLeased(f model.FlagID) bool {
	return f >= model.FirstDynamicFlag && int(f) < model.FlagWidth && p.leased&f.Mask() != 0
}

// IsSuspended reports whether f is a suspended exclusion bit.
func (p *Pool) IsSuspended(f model.FlagID) bool {
	return int(f) < model.FlagWidth && p.suspended&f.Mask() != 0
}

// Kind returns the purpose of a leased bit.
func (p *Pool) Kind(f model.FlagID) (Kind, bool) {
	if !p.IsLeased(f) {
		return 0, false
	}
	return p.kinds[f], true
}

// ExclusionMask returns the union of all active (non-suspended) exclusion bits.
func (p *Pool) ExclusionMask() model.Mask {
	return p.exclusion &^ p.suspended
}

// Leased returns the number of leased bits.
func (p *Pool) Leased() int { return p.leased.Count() }

// Available returns the number of free bits.
func (p *Pool) Available() int { return len(p.free) }
