package domain

import (
	"bytes"
	"errors"
	"fmt"
	"slices"

	"github.com/bytedance/sonic"
)

// DragKind tags a drag gesture.
type DragKind string

const (
	DragColumn DragKind = "column"
	DragTask   DragKind = "task"
)

var (
	ErrStaleDrag   = errors.New("drag does not match the board")
	ErrUnknownDrag = errors.New("unknown drag kind")
)

// Drag is a completed drag-and-drop gesture: either a ColumnDrag or a
// TaskDrag.
type Drag interface {
	Kind() DragKind
	// Check reports ErrStaleDrag when the gesture was recorded against a
	// different board than b.
	Check(b Board) error
	isDrag()
}

// ColumnDrag moves a column from FromIndex to ToIndex of the column order.
type ColumnDrag struct {
	ID        string `json:"id"`
	FromIndex int    `json:"fromIndex"`
	ToIndex   int    `json:"toIndex"`
}

// TaskDrag moves a task between (or within) columns.
type TaskDrag struct {
	ID         string `json:"id"`
	FromColumn string `json:"fromColumn"`
	ToColumn   string `json:"toColumn"`
	FromIndex  int    `json:"fromIndex"`
	ToIndex    int    `json:"toIndex"`
}

func (ColumnDrag) Kind() DragKind { return DragColumn }
func (TaskDrag) Kind() DragKind   { return DragTask }
func (ColumnDrag) isDrag()        {}
func (TaskDrag) isDrag()          {}

func (d ColumnDrag) Check(b Board) error {
	if d.ToIndex < 0 {
		return fmt.Errorf("%w: negative target index", ErrStaleDrag)
	}
	if i := b.ColumnIndex(d.ID); i < 0 || i != d.FromIndex {
		return fmt.Errorf("%w: column %q not at %d", ErrStaleDrag, d.ID, d.FromIndex)
	}
	return nil
}

func (d TaskDrag) Check(b Board) error {
	if d.ToIndex < 0 {
		return fmt.Errorf("%w: negative target index", ErrStaleDrag)
	}
	if _, ok := b.Tasks[d.ID]; !ok {
		return fmt.Errorf("%w: unknown task %q", ErrStaleDrag, d.ID)
	}
	src, ok := b.Columns[d.FromColumn]
	if !ok || slices.Index(src.TaskIDs, d.ID) != d.FromIndex {
		return fmt.Errorf("%w: task %q not at %s[%d]", ErrStaleDrag, d.ID, d.FromColumn, d.FromIndex)
	}
	if _, ok := b.Columns[d.ToColumn]; !ok {
		return fmt.Errorf("%w: unknown column %q", ErrStaleDrag, d.ToColumn)
	}
	return nil
}

// ApplyDrag checks d against b and performs the matching move. Stale
// gestures leave the board unchanged.
func (m *Manager) ApplyDrag(b Board, d Drag) (Board, bool) {
	if d == nil || d.Check(b) != nil {
		return b, false
	}
	switch d := d.(type) {
	case ColumnDrag:
		return m.ReorderColumns(b, d.ID, d.ToIndex)
	case TaskDrag:
		return m.MoveTask(b, d.ID, d.FromColumn, d.ToColumn, d.ToIndex)
	}
	return b, false
}

type dragEnvelope struct {
	Kind       DragKind `json:"kind"`
	ID         string   `json:"id"`
	FromColumn string   `json:"fromColumn,omitempty"`
	ToColumn   string   `json:"toColumn,omitempty"`
	FromIndex  int      `json:"fromIndex"`
	ToIndex    int      `json:"toIndex"`
}

// DecodeDrag parses a {"kind": ...} envelope.
func DecodeDrag(data []byte) (Drag, error) {
	var env dragEnvelope
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode drag: %w", err)
	}
	switch env.Kind {
	case DragColumn:
		if env.FromColumn != "" || env.ToColumn != "" {
			return nil, fmt.Errorf("decode drag: column drag carries task fields")
		}
		return ColumnDrag{ID: env.ID, FromIndex: env.FromIndex, ToIndex: env.ToIndex}, nil
	case DragTask:
		return TaskDrag{
			ID:         env.ID,
			FromColumn: env.FromColumn,
			ToColumn:   env.ToColumn,
			FromIndex:  env.FromIndex,
			ToIndex:    env.ToIndex,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDrag, env.Kind)
}

// EncodeDrag is the inverse of DecodeDrag.
func EncodeDrag(d Drag) ([]byte, error) {
	var env dragEnvelope
	switch d := d.(type) {
	case ColumnDrag:
		env = dragEnvelope{Kind: DragColumn, ID: d.ID, FromIndex: d.FromIndex, ToIndex: d.ToIndex}
	case TaskDrag:
		env = dragEnvelope{Kind: DragTask, ID: d.ID, FromColumn: d.FromColumn, ToColumn: d.ToColumn, FromIndex: d.FromIndex, ToIndex: d.ToIndex}
	default:
		return nil, ErrUnknownDrag
	}
	return sonic.ConfigStd.Marshal(env)
}
