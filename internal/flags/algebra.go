package flags

import (
	"fmt"

	"github.com/hupe1980/coltab/internal/row"
	"github.com/hupe1980/coltab/model"
)

// Op is a row-set operator.
type Op uint8

const (
	And Op = iota
	Or
	Xor
	// Not keeps rows in the first operand that are not in the second.
	Not
)

func (o Op) String() string {
	switch o {
	case And:
		return "and"
	case Or:
		return "or"
	case Xor:
		return "xor"
	case Not:
		return "not"
	default:
		return fmt.Sprintf("Op(%d)", uint8(o))
	}
}

// Apply evaluates the operator on single-row memberships.
func (o Op) Apply(a, b bool) bool {
	switch o {
	case And:
		return a && b
	case Or:
		return a || b
	case Xor:
		return a != b
	case Not:
		return a && !b
	default:
		return false
	}
}

// Combine leases a new list bit and marks every row for which op(a, b) holds.
// The selection bit is a valid operand.
func (p *Pool) Combine(op Op, a, b model.FlagID, rows []*row.Row) (model.FlagID, error) {
	for _, f := range [2]model.FlagID{a, b} {
		if f != model.FlagSelected && !p.IsLeased(f) {
			return 0, fmt.Errorf("%w: %s", ErrNotLeased, f)
		}
	}
	result, err := p.Lease(KindList)
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		if op.Apply(r.IsFlagSet(a), r.IsFlagSet(b)) {
			r.SetFlag(result)
		} else {
			r.ClearFlag(result)
		}
	}
	return result, nil
}
