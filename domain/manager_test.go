package domain

import (
	"math/rand"
	"slices"
	"strconv"
	"testing"
	"time"
)

func fixedManager() *Manager {
	at := time.Unix(0, 100)
	return NewManager(NewIDGeneratorAt(func() time.Time { return at }))
}

// boardWithTasks returns the seed board with n tasks in column-1.
func boardWithTasks(t *testing.T, m *Manager, n int) Board {
	t.Helper()
	b := Seed()
	for i := 0; i < n; i++ {
		var changed bool
		b, changed = m.AddTask(b, "column-1", "task "+strconv.Itoa(i))
		if !changed {
			t.Fatalf("add task %d reported no change", i)
		}
	}
	return b
}

func mustValid(t *testing.T, b Board) {
	t.Helper()
	if err := Validate(b); err != nil {
		t.Fatalf("invalid board: %v", err)
	}
}

func TestAddTaskAppendsToColumn(t *testing.T) {
	m := fixedManager()
	b := boardWithTasks(t, m, 2)

	ids := b.Columns["column-1"].TaskIDs
	if !slices.Equal(ids, []string{"task-100", "task-101"}) {
		t.Fatalf("unexpected task ids %v", ids)
	}
	task := b.Tasks["task-101"]
	if task.Content != "task 1" || task.Column != "column-1" {
		t.Fatalf("unexpected task %+v", task)
	}
	mustValid(t, b)
}

func TestAddTaskKeepsContentUntrimmed(t *testing.T) {
	m := fixedManager()
	b, changed := m.AddTask(Seed(), "column-2", "  padded ")
	if !changed {
		t.Fatalf("expected change")
	}
	if got := b.TasksIn("column-2")[0].Content; got != "  padded " {
		t.Fatalf("content = %q", got)
	}
}

func TestNoOpTransitions(t *testing.T) {
	m := fixedManager()
	base := boardWithTasks(t, m, 2)

	cases := []struct {
		name string
		run  func(Board) (Board, bool)
	}{
		{"add task blank", func(b Board) (Board, bool) { return m.AddTask(b, "column-1", "   ") }},
		{"add task unknown column", func(b Board) (Board, bool) { return m.AddTask(b, "column-9", "x") }},
		{"delete unknown task", func(b Board) (Board, bool) { return m.DeleteTask(b, "task-9", "column-1") }},
		{"delete from wrong column", func(b Board) (Board, bool) { return m.DeleteTask(b, "task-100", "column-2") }},
		{"edit blank", func(b Board) (Board, bool) { return m.EditTask(b, "task-100", "") }},
		{"edit unknown", func(b Board) (Board, bool) { return m.EditTask(b, "task-9", "x") }},
		{"edit unchanged", func(b Board) (Board, bool) { return m.EditTask(b, "task-100", "task 0") }},
		{"move unknown task", func(b Board) (Board, bool) { return m.MoveTask(b, "task-9", "column-1", "column-2", 0) }},
		{"move unknown dest", func(b Board) (Board, bool) { return m.MoveTask(b, "task-100", "column-1", "column-9", 0) }},
		{"move from wrong source", func(b Board) (Board, bool) { return m.MoveTask(b, "task-100", "column-2", "column-3", 0) }},
		{"move to same slot", func(b Board) (Board, bool) { return m.MoveTask(b, "task-100", "column-1", "column-1", 0) }},
		{"move past end when last", func(b Board) (Board, bool) { return m.MoveTask(b, "task-101", "column-1", "column-1", 50) }},
		{"add column blank", func(b Board) (Board, bool) { return m.AddColumn(b, "\t") }},
		{"delete unknown column", func(b Board) (Board, bool) { return m.DeleteColumn(b, "column-9") }},
		{"rename blank", func(b Board) (Board, bool) { return m.RenameColumn(b, "column-1", " ") }},
		{"rename unknown", func(b Board) (Board, bool) { return m.RenameColumn(b, "column-9", "x") }},
		{"rename unchanged", func(b Board) (Board, bool) { return m.RenameColumn(b, "column-1", "To Do") }},
		{"reorder unknown", func(b Board) (Board, bool) { return m.ReorderColumns(b, "column-9", 0) }},
		{"reorder same slot", func(b Board) (Board, bool) { return m.ReorderColumns(b, "column-2", 1) }},
		{"reorder last past end", func(b Board) (Board, bool) { return m.ReorderColumns(b, "column-3", 10) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := base.Clone()
			got, changed := tc.run(base)
			if changed {
				t.Fatalf("expected no change")
			}
			if !got.Equal(before) || !base.Equal(before) {
				t.Fatalf("board changed on no-op")
			}
		})
	}
}

func TestTransitionsLeaveInputUntouched(t *testing.T) {
	m := fixedManager()
	base := boardWithTasks(t, m, 3)
	before := base.Clone()

	m.AddTask(base, "column-1", "more")
	m.DeleteTask(base, "task-100", "column-1")
	m.EditTask(base, "task-101", "edited")
	m.MoveTask(base, "task-102", "column-1", "column-3", 0)
	m.MoveTask(base, "task-100", "column-1", "column-1", 2)
	m.AddColumn(base, "Review")
	m.DeleteColumn(base, "column-1")
	m.RenameColumn(base, "column-2", "Doing")
	m.ReorderColumns(base, "column-3", 0)

	if !base.Equal(before) {
		t.Fatalf("input board was mutated")
	}
}

func TestMoveTaskWithinColumn(t *testing.T) {
	m := fixedManager()
	b := boardWithTasks(t, m, 3)

	next, changed := m.MoveTask(b, "task-100", "column-1", "column-1", 2)
	if !changed {
		t.Fatalf("expected change")
	}
	want := []string{"task-101", "task-102", "task-100"}
	if got := next.Columns["column-1"].TaskIDs; !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}

	clamped, changed := m.MoveTask(b, "task-102", "column-1", "column-1", -4)
	if !changed {
		t.Fatalf("expected change for clamped index")
	}
	want = []string{"task-102", "task-100", "task-101"}
	if got := clamped.Columns["column-1"].TaskIDs; !slices.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	mustValid(t, next)
	mustValid(t, clamped)
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	m := fixedManager()
	b := boardWithTasks(t, m, 2)
	b, _ = m.AddTask(b, "column-2", "other")

	next, changed := m.MoveTask(b, "task-101", "column-1", "column-2", 0)
	if !changed {
		t.Fatalf("expected change")
	}
	if got := next.Columns["column-1"].TaskIDs; !slices.Equal(got, []string{"task-100"}) {
		t.Fatalf("source = %v", got)
	}
	if got := next.Columns["column-2"].TaskIDs; !slices.Equal(got, []string{"task-101", "task-102"}) {
		t.Fatalf("dest = %v", got)
	}
	if next.Tasks["task-101"].Column != "column-2" {
		t.Fatalf("task column not updated: %+v", next.Tasks["task-101"])
	}
	mustValid(t, next)
}

func TestReorderColumns(t *testing.T) {
	m := fixedManager()
	next, changed := m.ReorderColumns(Seed(), "column-3", 0)
	if !changed {
		t.Fatalf("expected change")
	}
	want := []string{"column-3", "column-1", "column-2"}
	if !slices.Equal(next.ColumnOrder, want) {
		t.Fatalf("got %v want %v", next.ColumnOrder, want)
	}

	next, changed = m.ReorderColumns(Seed(), "column-1", 99)
	if !changed {
		t.Fatalf("expected change")
	}
	want = []string{"column-2", "column-3", "column-1"}
	if !slices.Equal(next.ColumnOrder, want) {
		t.Fatalf("got %v want %v", next.ColumnOrder, want)
	}
}

func TestAddColumnThenTaskThenMove(t *testing.T) {
	m := NewManager(nil)
	b := Seed()

	b, changed := m.AddColumn(b, "Review")
	if !changed {
		t.Fatalf("add column reported no change")
	}
	if len(b.ColumnOrder) != 4 {
		t.Fatalf("expected 4 columns, got %v", b.ColumnOrder)
	}
	review := b.ColumnOrder[3]
	if b.Columns[review].Title != "Review" || len(b.Columns[review].TaskIDs) != 0 {
		t.Fatalf("unexpected review column %+v", b.Columns[review])
	}

	b, changed = m.AddTask(b, "column-1", "Write spec")
	if !changed {
		t.Fatalf("add task reported no change")
	}
	taskID := b.Columns["column-1"].TaskIDs[0]

	b, changed = m.MoveTask(b, taskID, "column-1", review, 0)
	if !changed {
		t.Fatalf("move reported no change")
	}

	if len(b.ColumnOrder) != 4 {
		t.Fatalf("expected 4 columns, got %v", b.ColumnOrder)
	}
	if got := b.Columns[review].TaskIDs; !slices.Equal(got, []string{taskID}) {
		t.Fatalf("review column = %v", got)
	}
	if got := b.Columns["column-1"].TaskIDs; len(got) != 0 {
		t.Fatalf("column-1 should be empty, got %v", got)
	}
	if b.Tasks[taskID].Column != review {
		t.Fatalf("task column = %q", b.Tasks[taskID].Column)
	}
	mustValid(t, b)
}

func TestDeleteColumnCascadesTasks(t *testing.T) {
	m := fixedManager()
	b := Seed()
	b, _ = m.AddTask(b, "column-2", "one")
	b, _ = m.AddTask(b, "column-2", "two")
	b, _ = m.AddTask(b, "column-1", "kept")

	next, changed := m.DeleteColumn(b, "column-2")
	if !changed {
		t.Fatalf("expected change")
	}
	if _, ok := next.Tasks["task-100"]; ok {
		t.Fatalf("task-100 should be deleted")
	}
	if _, ok := next.Tasks["task-101"]; ok {
		t.Fatalf("task-101 should be deleted")
	}
	if _, ok := next.Tasks["task-102"]; !ok {
		t.Fatalf("task-102 should survive")
	}
	if !slices.Equal(next.ColumnOrder, []string{"column-1", "column-3"}) {
		t.Fatalf("order = %v", next.ColumnOrder)
	}
	mustValid(t, next)
}

func TestNewIDSkipsIDsOnBoard(t *testing.T) {
	m := fixedManager()
	b := Seed()
	b.Tasks["task-100"] = Task{ID: "task-100", Content: "existing", Column: "column-1"}
	b.Columns["column-1"] = Column{ID: "column-1", Title: "To Do", TaskIDs: []string{"task-100"}}

	next, _ := m.AddTask(b, "column-1", "new")
	if got := next.Columns["column-1"].TaskIDs; !slices.Equal(got, []string{"task-100", "task-101"}) {
		t.Fatalf("got %v", got)
	}
}

func TestIDGeneratorStrictlyIncreasing(t *testing.T) {
	clock := time.Unix(0, 500)
	g := NewIDGeneratorAt(func() time.Time { return clock })

	first := g.NewID(TaskKind)
	clock = time.Unix(0, 10)
	second := g.NewID(ColumnKind)
	if first != "task-500" || second != "column-501" {
		t.Fatalf("got %s, %s", first, second)
	}
}

func TestRandomSequencesPreserveInvariants(t *testing.T) {
	m := NewManager(nil)
	rng := rand.New(rand.NewSource(7))
	b := Seed()

	pick := func(ids []string) string {
		if len(ids) == 0 || rng.Intn(10) == 0 {
			return "missing-" + strconv.Itoa(rng.Intn(3))
		}
		return ids[rng.Intn(len(ids))]
	}
	texts := []string{"", " ", "a", "write tests", "ship"}

	for step := 0; step < 3000; step++ {
		taskIDs := sortedKeys(b.Tasks)
		cols := b.ColumnOrder
		before := b.Clone()

		var next Board
		var changed bool
		switch rng.Intn(8) {
		case 0:
			next, changed = m.AddTask(b, pick(cols), texts[rng.Intn(len(texts))])
		case 1:
			id := pick(taskIDs)
			next, changed = m.DeleteTask(b, id, b.Tasks[id].Column)
		case 2:
			next, changed = m.EditTask(b, pick(taskIDs), texts[rng.Intn(len(texts))])
		case 3:
			id := pick(taskIDs)
			next, changed = m.MoveTask(b, id, b.Tasks[id].Column, pick(cols), rng.Intn(6)-1)
		case 4:
			if len(cols) < 6 {
				next, changed = m.AddColumn(b, texts[rng.Intn(len(texts))])
			} else {
				next = b
			}
		case 5:
			if rng.Intn(4) == 0 {
				next, changed = m.DeleteColumn(b, pick(cols))
			} else {
				next = b
			}
		case 6:
			next, changed = m.RenameColumn(b, pick(cols), texts[rng.Intn(len(texts))])
		case 7:
			next, changed = m.ReorderColumns(b, pick(cols), rng.Intn(6)-1)
		}

		if !b.Equal(before) {
			t.Fatalf("step %d mutated its input", step)
		}
		if !changed && !next.Equal(b) {
			t.Fatalf("step %d reported no change but board differs", step)
		}
		if err := Validate(next); err != nil {
			t.Fatalf("step %d broke invariants: %v", step, err)
		}
		b = next
	}
}
