package domain

import (
	"errors"
	"fmt"
	"sort"
)

// Validate checks the structural invariants of a board and returns every
// violation joined into one error.
func Validate(b Board) error {
	var errs []error

	listed := make(map[string]bool, len(b.ColumnOrder))
	for _, id := range b.ColumnOrder {
		if listed[id] {
			errs = append(errs, fmt.Errorf("column %q appears twice in columnOrder", id))
			continue
		}
		listed[id] = true
		if _, ok := b.Columns[id]; !ok {
			errs = append(errs, fmt.Errorf("columnOrder references missing column %q", id))
		}
	}

	owner := make(map[string]string, len(b.Tasks))
	for _, id := range sortedKeys(b.Columns) {
		col := b.Columns[id]
		if col.ID != id {
			errs = append(errs, fmt.Errorf("column %q stored under key %q", col.ID, id))
		}
		if !listed[id] {
			errs = append(errs, fmt.Errorf("column %q missing from columnOrder", id))
		}
		for _, tid := range col.TaskIDs {
			if _, ok := b.Tasks[tid]; !ok {
				errs = append(errs, fmt.Errorf("column %q lists missing task %q", id, tid))
				continue
			}
			if prev, dup := owner[tid]; dup {
				errs = append(errs, fmt.Errorf("task %q listed by %q and %q", tid, prev, id))
				continue
			}
			owner[tid] = id
		}
	}

	for _, id := range sortedKeys(b.Tasks) {
		task := b.Tasks[id]
		if task.ID != id {
			errs = append(errs, fmt.Errorf("task %q stored under key %q", task.ID, id))
		}
		col, ok := owner[id]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("task %q is not listed by any column", id))
		case task.Column != col:
			errs = append(errs, fmt.Errorf("task %q says column %q but is listed by %q", id, task.Column, col))
		}
	}

	return errors.Join(errs...)
}

// Repair rebuilds a board that satisfies Validate, keeping as much of b as
// possible. It returns a description of each fix; an empty list means b was
// already valid.
func Repair(b Board) (Board, []string) {
	var fixes []string
	note := func(format string, args ...any) {
		fixes = append(fixes, fmt.Sprintf(format, args...))
	}

	tasks := make(map[string]Task, len(b.Tasks))
	for id, task := range b.Tasks {
		if task.ID != id {
			note("task %q: id reset from %q", id, task.ID)
			task.ID = id
		}
		tasks[id] = task
	}

	columns := make(map[string]Column, len(b.Columns))
	owner := make(map[string]string, len(tasks))
	for _, id := range sortedKeys(b.Columns) {
		col := b.Columns[id]
		if col.ID != id {
			note("column %q: id reset from %q", id, col.ID)
			col.ID = id
		}
		ids := make([]string, 0, len(col.TaskIDs))
		for _, tid := range col.TaskIDs {
			if _, ok := tasks[tid]; !ok {
				note("column %q: dropped missing task %q", id, tid)
				continue
			}
			if prev, dup := owner[tid]; dup {
				note("column %q: dropped task %q already listed by %q", id, tid, prev)
				continue
			}
			owner[tid] = id
			ids = append(ids, tid)
		}
		col.TaskIDs = ids
		columns[id] = col
	}

	for _, id := range sortedKeys(tasks) {
		task := tasks[id]
		col, ok := owner[id]
		if !ok {
			note("task %q: dropped, no column lists it", id)
			delete(tasks, id)
			continue
		}
		if task.Column != col {
			note("task %q: column reset from %q to %q", id, task.Column, col)
			task.Column = col
			tasks[id] = task
		}
	}

	order := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, id := range b.ColumnOrder {
		if _, ok := columns[id]; !ok {
			note("columnOrder: dropped missing column %q", id)
			continue
		}
		if seen[id] {
			note("columnOrder: dropped duplicate %q", id)
			continue
		}
		seen[id] = true
		order = append(order, id)
	}
	for _, id := range sortedKeys(columns) {
		if !seen[id] {
			note("columnOrder: appended unlisted column %q", id)
			order = append(order, id)
		}
	}

	return Board{Tasks: tasks, Columns: columns, ColumnOrder: order}, fixes
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
