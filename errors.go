package coltab

import (
	"errors"
	"fmt"

	"github.com/hupe1980/coltab/internal/flags"
)

var (
	// ErrFlagPoolExhausted is returned when all dynamic flag bits are leased.
	// The caller must free a flag first.
	ErrFlagPoolExhausted = errors.New("flag pool exhausted")

	// ErrInvalidColumn is returned for an out-of-range column index or a
	// column that does not support the operation.
	ErrInvalidColumn = errors.New("invalid column")

	// ErrDuplicateColumn is returned when a column name is already in use.
	ErrDuplicateColumn = errors.New("duplicate column name")

	// ErrInvalidRow is returned for an unknown row id.
	ErrInvalidRow = errors.New("invalid row")

	// ErrInvalidFlag is returned for a flag that is not leased or has the
	// wrong kind for the operation.
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("table closed")

	// ErrNotDerived is returned when a derived column is required.
	ErrNotDerived = errors.New("column is not derived")
)

// DeriverError aggregates the per-cell failures of one derived column.
//
// The first failure can be accessed via errors.Unwrap.
type DeriverError struct {
	Column string
	Count  int64
	Sample error
}

func (e *DeriverError) Error() string {
	return fmt.Sprintf("derivation of column %q failed for %d rows: %v", e.Column, e.Count, e.Sample)
}

func (e *DeriverError) Unwrap() error { return e.Sample }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, flags.ErrPoolExhausted):
		return fmt.Errorf("%w: %w", ErrFlagPoolExhausted, err)
	case errors.Is(err, flags.ErrNotLeased), errors.Is(err, flags.ErrNotExclusion):
		return fmt.Errorf("%w: %w", ErrInvalidFlag, err)
	}
	return err
}
