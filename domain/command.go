package domain

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// Command types.
const (
	CmdAddTask        = "add-task"
	CmdDeleteTask     = "delete-task"
	CmdEditTask       = "edit-task"
	CmdMoveTask       = "move-task"
	CmdAddColumn      = "add-column"
	CmdDeleteColumn   = "delete-column"
	CmdRenameColumn   = "rename-column"
	CmdReorderColumns = "reorder-columns"
)

var ErrUnknownCommand = errors.New("unknown command type")

// Command represents a write request for the board.
type Command struct {
	IdempotencyKey string                 `json:"idempotencyKey"`
	Type           string                 `json:"type"`
	Data           sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp      int64                  `json:"timestamp"`
}

type AddTaskData struct {
	ColumnID string `json:"columnId"`
	Content  string `json:"content"`
}

type DeleteTaskData struct {
	TaskID   string `json:"taskId"`
	ColumnID string `json:"columnId"`
}

type EditTaskData struct {
	TaskID  string `json:"taskId"`
	Content string `json:"content"`
}

type MoveTaskData struct {
	TaskID         string `json:"taskId"`
	SourceColumnID string `json:"sourceColumnId"`
	DestColumnID   string `json:"destColumnId"`
	DestIndex      int    `json:"destIndex"`
}

type AddColumnData struct {
	Title string `json:"title"`
}

type DeleteColumnData struct {
	ColumnID string `json:"columnId"`
}

type RenameColumnData struct {
	ColumnID string `json:"columnId"`
	Title    string `json:"title"`
}

type ReorderColumnsData struct {
	ColumnID  string `json:"columnId"`
	DestIndex int    `json:"destIndex"`
}

// NewCommand builds a command of the given type with data as payload.
func NewCommand(typ string, data any) (Command, error) {
	raw, err := sonic.ConfigStd.Marshal(data)
	if err != nil {
		return Command{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Command{Type: typ, Data: raw}, nil
}

// Validate decodes the payload without touching any board.
func (c Command) Validate() error {
	_, err := c.transition()
	return err
}

// Apply decodes cmd and runs the matching transition. Only malformed
// commands return an error; transitions that do nothing report false.
func (m *Manager) Apply(b Board, cmd Command) (Board, bool, error) {
	run, err := cmd.transition()
	if err != nil {
		return b, false, err
	}
	next, changed := run(m, b)
	return next, changed, nil
}

type transition func(m *Manager, b Board) (Board, bool)

func (c Command) transition() (transition, error) {
	switch c.Type {
	case CmdAddTask:
		var d AddTaskData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.AddTask(b, d.ColumnID, d.Content) }, nil
	case CmdDeleteTask:
		var d DeleteTaskData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.DeleteTask(b, d.TaskID, d.ColumnID) }, nil
	case CmdEditTask:
		var d EditTaskData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.EditTask(b, d.TaskID, d.Content) }, nil
	case CmdMoveTask:
		var d MoveTaskData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) {
			return m.MoveTask(b, d.TaskID, d.SourceColumnID, d.DestColumnID, d.DestIndex)
		}, nil
	case CmdAddColumn:
		var d AddColumnData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.AddColumn(b, d.Title) }, nil
	case CmdDeleteColumn:
		var d DeleteColumnData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.DeleteColumn(b, d.ColumnID) }, nil
	case CmdRenameColumn:
		var d RenameColumnData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.RenameColumn(b, d.ColumnID, d.Title) }, nil
	case CmdReorderColumns:
		var d ReorderColumnsData
		if err := c.decode(&d); err != nil {
			return nil, err
		}
		return func(m *Manager, b Board) (Board, bool) { return m.ReorderColumns(b, d.ColumnID, d.DestIndex) }, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, c.Type)
}

func (c Command) decode(v any) error {
	if len(c.Data) == 0 {
		return fmt.Errorf("%s: missing data", c.Type)
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(c.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%s: %w", c.Type, err)
	}
	return nil
}
