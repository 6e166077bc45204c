package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	EventTaskAdded        = "task-added"
	EventTaskDeleted      = "task-deleted"
	EventTaskEdited       = "task-edited"
	EventTaskMoved        = "task-moved"
	EventColumnAdded      = "column-added"
	EventColumnDeleted    = "column-deleted"
	EventColumnRenamed    = "column-renamed"
	EventColumnsReordered = "columns-reordered"
)

var commandEvents = map[string]string{
	CmdAddTask:        EventTaskAdded,
	CmdDeleteTask:     EventTaskDeleted,
	CmdEditTask:       EventTaskEdited,
	CmdMoveTask:       EventTaskMoved,
	CmdAddColumn:      EventColumnAdded,
	CmdDeleteColumn:   EventColumnDeleted,
	CmdRenameColumn:   EventColumnRenamed,
	CmdReorderColumns: EventColumnsReordered,
}

// BoardEvent announces a change. Board is the state after the change and may
// be omitted by transports with small message limits.
type BoardEvent struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Cause string `json:"cause,omitempty"`
	Time  int64  `json:"time"`
	Board *Board `json:"board,omitempty"`
}

// EventForCommand returns the event type produced by a command type.
func EventForCommand(cmdType string) (string, bool) {
	ev, ok := commandEvents[cmdType]
	return ev, ok
}

// EventForDrag returns the event type produced by a drag.
func EventForDrag(d Drag) string {
	if d.Kind() == DragColumn {
		return EventColumnsReordered
	}
	return EventTaskMoved
}

// NewEvent stamps an event for board b. cause is the idempotency key of the
// command that produced it, if any.
func NewEvent(typ, cause string, b Board) BoardEvent {
	return BoardEvent{
		ID:    uuid.NewString(),
		Type:  typ,
		Cause: cause,
		Time:  time.Now().UnixMilli(),
		Board: &b,
	}
}
