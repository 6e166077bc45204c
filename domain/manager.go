package domain

import (
	"slices"
	"strings"
)

// Manager implements the board transitions. Every method returns the next
// board and whether anything changed; on a no-op the input board is
// returned untouched with false.
type Manager struct {
	ids IDSource
}

// NewManager returns a Manager; a nil source uses a clock-seeded generator.
func NewManager(ids IDSource) *Manager {
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Manager{ids: ids}
}

// newID draws ids until one is unused on b.
func (m *Manager) newID(b Board, kind string) string {
	for {
		id := m.ids.NewID(kind)
		_, task := b.Tasks[id]
		_, col := b.Columns[id]
		if !task && !col {
			return id
		}
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// AddTask appends a new task with the given content to a column.
func (m *Manager) AddTask(b Board, columnID, content string) (Board, bool) {
	if blank(content) {
		return b, false
	}
	col, ok := b.Columns[columnID]
	if !ok {
		return b, false
	}
	id := m.newID(b, TaskKind)

	tasks := cloneTasks(b.Tasks)
	tasks[id] = Task{ID: id, Content: content, Column: columnID}
	col.TaskIDs = insertAt(col.TaskIDs, len(col.TaskIDs), id)
	columns := cloneColumns(b.Columns)
	columns[columnID] = col

	return Board{Tasks: tasks, Columns: columns, ColumnOrder: b.ColumnOrder}, true
}

// DeleteTask removes a task from the board and from the column listing it.
// A task that the named column does not list is left alone.
func (m *Manager) DeleteTask(b Board, taskID, columnID string) (Board, bool) {
	if _, ok := b.Tasks[taskID]; !ok {
		return b, false
	}
	col, ok := b.Columns[columnID]
	if !ok {
		return b, false
	}
	i := slices.Index(col.TaskIDs, taskID)
	if i < 0 {
		return b, false
	}

	tasks := cloneTasks(b.Tasks)
	delete(tasks, taskID)
	col.TaskIDs = removeAt(col.TaskIDs, i)
	columns := cloneColumns(b.Columns)
	columns[columnID] = col

	return Board{Tasks: tasks, Columns: columns, ColumnOrder: b.ColumnOrder}, true
}

// EditTask replaces a task's content.
func (m *Manager) EditTask(b Board, taskID, content string) (Board, bool) {
	if blank(content) {
		return b, false
	}
	task, ok := b.Tasks[taskID]
	if !ok || task.Content == content {
		return b, false
	}

	tasks := cloneTasks(b.Tasks)
	task.Content = content
	tasks[taskID] = task

	return Board{Tasks: tasks, Columns: b.Columns, ColumnOrder: b.ColumnOrder}, true
}

// MoveTask moves a task to position destIndex of destColumnID. The index is
// clamped; within one column it addresses the list after removal.
func (m *Manager) MoveTask(b Board, taskID, sourceColumnID, destColumnID string, destIndex int) (Board, bool) {
	task, ok := b.Tasks[taskID]
	if !ok {
		return b, false
	}
	src, ok := b.Columns[sourceColumnID]
	if !ok {
		return b, false
	}
	dst, ok := b.Columns[destColumnID]
	if !ok {
		return b, false
	}
	from := slices.Index(src.TaskIDs, taskID)
	if from < 0 {
		return b, false
	}

	columns := cloneColumns(b.Columns)
	if sourceColumnID == destColumnID {
		rest := removeAt(src.TaskIDs, from)
		to := clamp(destIndex, 0, len(rest))
		if to == from {
			return b, false
		}
		src.TaskIDs = insertAt(rest, to, taskID)
		columns[sourceColumnID] = src
		return Board{Tasks: b.Tasks, Columns: columns, ColumnOrder: b.ColumnOrder}, true
	}

	src.TaskIDs = removeAt(src.TaskIDs, from)
	dst.TaskIDs = insertAt(dst.TaskIDs, destIndex, taskID)
	columns[sourceColumnID] = src
	columns[destColumnID] = dst

	tasks := cloneTasks(b.Tasks)
	task.Column = destColumnID
	tasks[taskID] = task

	return Board{Tasks: tasks, Columns: columns, ColumnOrder: b.ColumnOrder}, true
}

// AddColumn appends an empty column.
func (m *Manager) AddColumn(b Board, title string) (Board, bool) {
	if blank(title) {
		return b, false
	}
	id := m.newID(b, ColumnKind)

	columns := cloneColumns(b.Columns)
	columns[id] = Column{ID: id, Title: title, TaskIDs: []string{}}
	order := insertAt(b.ColumnOrder, len(b.ColumnOrder), id)

	return Board{Tasks: b.Tasks, Columns: columns, ColumnOrder: order}, true
}

// DeleteColumn removes a column together with every task it lists.
func (m *Manager) DeleteColumn(b Board, columnID string) (Board, bool) {
	col, ok := b.Columns[columnID]
	if !ok {
		return b, false
	}

	tasks := cloneTasks(b.Tasks)
	for _, id := range col.TaskIDs {
		delete(tasks, id)
	}
	columns := cloneColumns(b.Columns)
	delete(columns, columnID)

	return Board{Tasks: tasks, Columns: columns, ColumnOrder: without(b.ColumnOrder, columnID)}, true
}

// RenameColumn sets a column's title.
func (m *Manager) RenameColumn(b Board, columnID, title string) (Board, bool) {
	if blank(title) {
		return b, false
	}
	col, ok := b.Columns[columnID]
	if !ok || col.Title == title {
		return b, false
	}

	columns := cloneColumns(b.Columns)
	col.Title = title
	columns[columnID] = col

	return Board{Tasks: b.Tasks, Columns: columns, ColumnOrder: b.ColumnOrder}, true
}

// ReorderColumns moves a column to position destIndex of the column order.
func (m *Manager) ReorderColumns(b Board, columnID string, destIndex int) (Board, bool) {
	from := slices.Index(b.ColumnOrder, columnID)
	if from < 0 {
		return b, false
	}
	rest := removeAt(b.ColumnOrder, from)
	to := clamp(destIndex, 0, len(rest))
	if to == from {
		return b, false
	}

	return Board{Tasks: b.Tasks, Columns: b.Columns, ColumnOrder: insertAt(rest, to, columnID)}, true
}
