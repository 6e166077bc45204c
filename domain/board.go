package domain

import "slices"

// Task is a single card. Column names the column whose taskIds list holds it.
type Task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Column  string `json:"column"`
}

// Column is a titled, ordered list of task ids.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

// Board is the whole kanban state. Boards are values: transitions build new
// maps and slices and never write through to the board they were given.
type Board struct {
	Tasks       map[string]Task   `json:"tasks"`
	Columns     map[string]Column `json:"columns"`
	ColumnOrder []string          `json:"columnOrder"`
}

// Id prefixes.
const (
	TaskKind   = "task"
	ColumnKind = "column"
)

// Seed returns the default board used when nothing usable is stored.
func Seed() Board {
	return Board{
		Tasks: map[string]Task{},
		Columns: map[string]Column{
			"column-1": {ID: "column-1", Title: "To Do", TaskIDs: []string{}},
			"column-2": {ID: "column-2", Title: "In Progress", TaskIDs: []string{}},
			"column-3": {ID: "column-3", Title: "Done", TaskIDs: []string{}},
		},
		ColumnOrder: []string{"column-1", "column-2", "column-3"},
	}
}

// OrderedColumns returns the columns in display order.
func (b Board) OrderedColumns() []Column {
	out := make([]Column, 0, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if col, ok := b.Columns[id]; ok {
			out = append(out, col)
		}
	}
	return out
}

// TasksIn returns the tasks of a column in position order.
func (b Board) TasksIn(columnID string) []Task {
	col, ok := b.Columns[columnID]
	if !ok {
		return nil
	}
	out := make([]Task, 0, len(col.TaskIDs))
	for _, id := range col.TaskIDs {
		if task, ok := b.Tasks[id]; ok {
			out = append(out, task)
		}
	}
	return out
}

// ColumnIndex returns the display position of a column or -1.
func (b Board) ColumnIndex(columnID string) int {
	return slices.Index(b.ColumnOrder, columnID)
}

// Equal reports structural equality. Nil and empty collections are equal.
func (b Board) Equal(o Board) bool {
	if len(b.Tasks) != len(o.Tasks) || len(b.Columns) != len(o.Columns) {
		return false
	}
	if !slices.Equal(b.ColumnOrder, o.ColumnOrder) {
		return false
	}
	for id, task := range b.Tasks {
		if other, ok := o.Tasks[id]; !ok || other != task {
			return false
		}
	}
	for id, col := range b.Columns {
		other, ok := o.Columns[id]
		if !ok || other.ID != col.ID || other.Title != col.Title || !slices.Equal(other.TaskIDs, col.TaskIDs) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (b Board) Clone() Board {
	columns := make(map[string]Column, len(b.Columns))
	for id, col := range b.Columns {
		col.TaskIDs = append(make([]string, 0, len(col.TaskIDs)), col.TaskIDs...)
		columns[id] = col
	}
	return Board{
		Tasks:       cloneTasks(b.Tasks),
		Columns:     columns,
		ColumnOrder: append(make([]string, 0, len(b.ColumnOrder)), b.ColumnOrder...),
	}
}

func cloneTasks(in map[string]Task) map[string]Task {
	out := make(map[string]Task, len(in)+1)
	for id, task := range in {
		out[id] = task
	}
	return out
}

// cloneColumns copies the map only; column slices are replaced, never edited.
func cloneColumns(in map[string]Column) map[string]Column {
	out := make(map[string]Column, len(in)+1)
	for id, col := range in {
		out[id] = col
	}
	return out
}

func removeAt(ids []string, i int) []string {
	out := make([]string, 0, len(ids)-1)
	out = append(out, ids[:i]...)
	return append(out, ids[i+1:]...)
}

func insertAt(ids []string, i int, id string) []string {
	i = clamp(i, 0, len(ids))
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:i]...)
	out = append(out, id)
	return append(out, ids[i:]...)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
