package coltab

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hupe1980/coltab/model"
)

// EventKind identifies a change notification.
type EventKind uint8

const (
	// EventTableReplaced is posted after Finalize.
	EventTableReplaced EventKind = iota + 1
	// EventRowsAdded carries the index of the first new row in First.
	EventRowsAdded
	// EventRowsRemoved carries the old-to-new row id mapping.
	EventRowsRemoved
	// EventColumnsAdded carries the index of the first new column in First.
	EventColumnsAdded
	// EventColumnsRemoved carries the old-to-new column mapping.
	EventColumnsRemoved
	// EventColumnDataChanged carries Column and Row (-1 for all rows).
	EventColumnDataChanged
	// EventColumnRenamed carries Column.
	EventColumnRenamed
	EventSelectionChanged
	EventSortOrderChanged
	// EventExclusionChanged carries the visibility Generation and whether the
	// change is an intermediate (Adjusting) one.
	EventExclusionChanged
)

func (k EventKind) String() string {
	switch k {
	case EventTableReplaced:
		return "TableReplaced"
	case EventRowsAdded:
		return "RowsAdded"
	case EventRowsRemoved:
		return "RowsRemoved"
	case EventColumnsAdded:
		return "ColumnsAdded"
	case EventColumnsRemoved:
		return "ColumnsRemoved"
	case EventColumnDataChanged:
		return "ColumnDataChanged"
	case EventColumnRenamed:
		return "ColumnRenamed"
	case EventSelectionChanged:
		return "SelectionChanged"
	case EventSortOrderChanged:
		return "SortOrderChanged"
	case EventExclusionChanged:
		return "ExclusionChanged"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is a change notification. Fields not used by a kind are zero, except
// Column and Row which are -1.
type Event struct {
	Kind  EventKind
	Table uuid.UUID

	First   int
	Mapping model.Identity
	Column  int
	Row     int

	Generation uint64
	Adjusting  bool
}

// Listener receives events on the table's delivery goroutine. A listener may
// mutate the table; the resulting events are delivered after the current one.
type Listener func(Event)

func (t *Table) event(kind EventKind) Event {
	return Event{Kind: kind, Table: t.id, Column: -1, Row: -1}
}

func isAdjusting(e Event) bool {
	return e.Kind == EventExclusionChanged && e.Adjusting
}
