package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
)

func TestApplyCommands(t *testing.T) {
	m := fixedManager()
	b := Seed()

	steps := []struct {
		typ  string
		data any
	}{
		{CmdAddColumn, AddColumnData{Title: "Review"}},
		{CmdAddTask, AddTaskData{ColumnID: "column-1", Content: "draft"}},
		{CmdEditTask, EditTaskData{TaskID: "task-101", Content: "final"}},
		{CmdMoveTask, MoveTaskData{TaskID: "task-101", SourceColumnID: "column-1", DestColumnID: "column-100", DestIndex: 0}},
		{CmdRenameColumn, RenameColumnData{ColumnID: "column-100", Title: "QA"}},
		{CmdReorderColumns, ReorderColumnsData{ColumnID: "column-100", DestIndex: 0}},
		{CmdDeleteTask, DeleteTaskData{TaskID: "task-101", ColumnID: "column-100"}},
		{CmdDeleteColumn, DeleteColumnData{ColumnID: "column-2"}},
	}
	for _, step := range steps {
		cmd, err := NewCommand(step.typ, step.data)
		if err != nil {
			t.Fatalf("new %s: %v", step.typ, err)
		}
		next, changed, err := m.Apply(b, cmd)
		if err != nil {
			t.Fatalf("apply %s: %v", step.typ, err)
		}
		if !changed {
			t.Fatalf("%s reported no change", step.typ)
		}
		mustValid(t, next)
		b = next
	}

	want := []string{"column-100", "column-1", "column-3"}
	if strings.Join(b.ColumnOrder, ",") != strings.Join(want, ",") {
		t.Fatalf("order = %v", b.ColumnOrder)
	}
	if b.Columns["column-100"].Title != "QA" || len(b.Tasks) != 0 {
		t.Fatalf("unexpected board %+v", b)
	}
}

func TestApplyNoOpCommand(t *testing.T) {
	m := fixedManager()
	cmd, _ := NewCommand(CmdAddTask, AddTaskData{ColumnID: "column-9", Content: "x"})
	b := Seed()
	next, changed, err := m.Apply(b, cmd)
	if err != nil || changed || !next.Equal(b) {
		t.Fatalf("expected silent no-op, got changed=%v err=%v", changed, err)
	}
}

func TestApplyRejectsMalformedCommands(t *testing.T) {
	m := fixedManager()
	cases := []struct {
		name string
		cmd  Command
	}{
		{"unknown type", Command{Type: "archive-task", Data: sonic.NoCopyRawMessage(`{}`)}},
		{"missing data", Command{Type: CmdAddColumn}},
		{"unknown field", Command{Type: CmdAddColumn, Data: sonic.NoCopyRawMessage(`{"title":"x","color":"red"}`)}},
		{"wrong type", Command{Type: CmdReorderColumns, Data: sonic.NoCopyRawMessage(`{"columnId":"c","destIndex":"first"}`)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cmd.Validate(); err == nil {
				t.Fatalf("validate accepted command")
			}
			b := Seed()
			next, changed, err := m.Apply(b, tc.cmd)
			if err == nil || changed || !next.Equal(b) {
				t.Fatalf("expected rejection, got changed=%v err=%v", changed, err)
			}
		})
	}

	_, _, err := m.Apply(Seed(), Command{Type: "archive-task"})
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestEventForCommandCoversAllTypes(t *testing.T) {
	for _, typ := range []string{CmdAddTask, CmdDeleteTask, CmdEditTask, CmdMoveTask, CmdAddColumn, CmdDeleteColumn, CmdRenameColumn, CmdReorderColumns} {
		if _, ok := EventForCommand(typ); !ok {
			t.Fatalf("no event for %s", typ)
		}
	}
	if EventForDrag(ColumnDrag{}) != EventColumnsReordered || EventForDrag(TaskDrag{}) != EventTaskMoved {
		t.Fatalf("unexpected drag events")
	}
}
