package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban/config"
	"kanban/domain"
	"kanban/notify"
	"kanban/storage"
)

// setupEnv points the CLI at a fresh file store and returns its directory.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("KANBAN_CONFIG", "")
	t.Setenv("KANBAN_STORAGE", config.BackendFile)
	t.Setenv("KANBAN_DATA_DIR", dir)
	t.Setenv("REDIS_CONNECTION_STRING", "")
	t.Setenv("EVENTS_CHANNEL", "")
	t.Setenv("EVENTS_QUEUE", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("kanban %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func loadBoard(t *testing.T, dir string) domain.Board {
	t.Helper()
	logger := log.New()
	logger.SetOutput(io.Discard)
	return storage.NewAdapter(storage.NewFileKV(dir), config.DefaultKey, logger).Load(context.Background())
}

func TestShowSeedBoard(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "show")
	for _, want := range []string{"To Do [column-1]", "In Progress [column-2]", "Done [column-3]", "(empty)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestShowJSON(t *testing.T) {
	setupEnv(t)

	out := mustRun(t, "show", "--json")
	var b domain.Board
	if err := sonic.UnmarshalString(out, &b); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if !slices.Equal(b.ColumnOrder, []string{"column-1", "column-2", "column-3"}) {
		t.Fatalf("order = %v", b.ColumnOrder)
	}
}

func TestTaskLifecycle(t *testing.T) {
	dir := setupEnv(t)

	if out := mustRun(t, "task", "add", "column-1", "Buy", "milk"); !strings.Contains(out, "task added") {
		t.Fatalf("unexpected output %q", out)
	}
	b := loadBoard(t, dir)
	tasks := b.TasksIn("column-1")
	if len(tasks) != 1 || tasks[0].Content != "Buy milk" {
		t.Fatalf("column-1 = %+v", tasks)
	}
	id := tasks[0].ID

	mustRun(t, "task", "edit", id, "Buy oat milk")
	mustRun(t, "task", "mv", id, "column-3")

	b = loadBoard(t, dir)
	if got := b.Columns["column-3"].TaskIDs; !slices.Equal(got, []string{id}) {
		t.Fatalf("column-3 = %v", got)
	}
	if got := b.Tasks[id]; got.Content != "Buy oat milk" || got.Column != "column-3" {
		t.Fatalf("task = %+v", got)
	}
	if err := domain.Validate(b); err != nil {
		t.Fatalf("invalid board: %v", err)
	}
	if out := mustRun(t, "show"); !strings.Contains(out, "0. Buy oat milk ["+id+"]") {
		t.Fatalf("show output:\n%s", out)
	}

	mustRun(t, "task", "rm", id)
	if b := loadBoard(t, dir); len(b.Tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(b.Tasks))
	}
}

func TestTaskMoveToIndex(t *testing.T) {
	dir := setupEnv(t)

	mustRun(t, "task", "add", "column-1", "a")
	mustRun(t, "task", "add", "column-1", "b")
	b := loadBoard(t, dir)
	second := b.Columns["column-1"].TaskIDs[1]

	mustRun(t, "task", "mv", second, "column-1", "0")

	b = loadBoard(t, dir)
	var got []string
	for _, task := range b.TasksIn("column-1") {
		got = append(got, task.Content)
	}
	if !slices.Equal(got, []string{"b", "a"}) {
		t.Fatalf("column-1 = %v", got)
	}

	if _, err := runCLI(t, "task", "mv", second, "column-1", "-1"); err == nil {
		t.Fatalf("expected error for negative index")
	}
}

func TestColumnCommands(t *testing.T) {
	dir := setupEnv(t)

	mustRun(t, "column", "add", "Code", "Review")
	mustRun(t, "column", "mv", "column-1", "3")
	mustRun(t, "column", "rename", "column-2", "Doing")
	mustRun(t, "column", "rm", "column-3")

	b := loadBoard(t, dir)
	if len(b.ColumnOrder) != 3 {
		t.Fatalf("order = %v", b.ColumnOrder)
	}
	if b.ColumnOrder[0] != "column-2" || b.ColumnOrder[2] != "column-1" {
		t.Fatalf("order = %v", b.ColumnOrder)
	}
	if title := b.Columns[b.ColumnOrder[1]].Title; title != "Code Review" {
		t.Fatalf("new column title = %q", title)
	}
	if b.Columns["column-2"].Title != "Doing" {
		t.Fatalf("rename not stored: %+v", b.Columns["column-2"])
	}
	if err := domain.Validate(b); err != nil {
		t.Fatalf("invalid board: %v", err)
	}
}

func TestNoOpIsReported(t *testing.T) {
	dir := setupEnv(t)

	out := mustRun(t, "column", "rename", "column-1", "To", "Do")
	if !strings.Contains(out, "nothing changed") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultKey+".json")); !os.IsNotExist(err) {
		t.Fatalf("no-op must not write the store, stat err: %v", err)
	}
}

func TestUnknownTaskIsAnError(t *testing.T) {
	setupEnv(t)

	if _, err := runCLI(t, "task", "rm", "task-404"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := runCLI(t, "column", "mv", "column-1", "x"); err == nil {
		t.Fatalf("expected error for bad index")
	}
}

// flakyKV fails the first n reads.
type flakyKV struct {
	storage.KV
	n int
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.n > 0 {
		f.n--
		return nil, errors.New("connection reset")
	}
	return f.KV.Get(ctx, key)
}

func TestApplyKeepsBoardWhenReadFails(t *testing.T) {
	ctx := context.Background()
	logger := log.New()
	logger.SetOutput(io.Discard)

	kv := storage.NewMemoryKV()
	stored, _ := domain.NewManager(nil).AddColumn(domain.Seed(), "Review")
	if err := storage.NewAdapter(kv, config.DefaultKey, logger).SaveErr(ctx, stored); err != nil {
		t.Fatalf("save: %v", err)
	}

	flaky := &flakyKV{KV: kv, n: 1}
	e := &env{
		store:   storage.NewAdapter(flaky, config.DefaultKey, logger),
		manager: domain.NewManager(nil),
		pub:     notify.Noop{},
		logger:  logger,
	}
	add := domain.AddTaskData{ColumnID: "column-1", Content: "a"}

	if _, _, err := e.apply(ctx, domain.CmdAddTask, add); err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("expected read error, got %v", err)
	}
	b := storage.NewAdapter(kv, config.DefaultKey, logger).Load(ctx)
	if !b.Equal(stored) {
		t.Fatalf("stored board overwritten: %+v", b)
	}

	next, changed, err := e.apply(ctx, domain.CmdAddTask, add)
	if err != nil || !changed {
		t.Fatalf("apply: changed=%v err=%v", changed, err)
	}
	if len(next.ColumnOrder) != 4 || len(next.Tasks) != 1 {
		t.Fatalf("expected Review column kept and one task, got %+v", next)
	}
}

func TestExportCSVToFile(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "task", "add", "column-2", "ship it")

	path := filepath.Join(dir, "out", "board.csv")
	mustRun(t, "export", "-f", "csv", "-o", path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	text := string(data)
	if !strings.HasPrefix(text, "column,position,task_id,content\n") || !strings.Contains(text, "In Progress,0,") {
		t.Fatalf("unexpected csv:\n%s", text)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "export", "-f", "xml"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestWatchNeedsChannel(t *testing.T) {
	setupEnv(t)
	if _, err := runCLI(t, "watch"); err == nil {
		t.Fatalf("expected error without events channel")
	}
}

func TestCommandsPublishEvents(t *testing.T) {
	setupEnv(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	t.Setenv("REDIS_CONNECTION_STRING", "redis://"+mr.Addr())
	t.Setenv("EVENTS_CHANNEL", "board-events")

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()
	ctx := context.Background()
	sub := rc.Subscribe(ctx, "board-events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	mustRun(t, "column", "add", "Review")

	select {
	case msg := <-sub.Channel():
		var ev domain.BoardEvent
		if err := sonic.UnmarshalString(msg.Payload, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != domain.EventColumnAdded || ev.Cause == "" {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.Board == nil || len(ev.Board.ColumnOrder) != 4 {
			t.Fatalf("expected board with four columns, got %+v", ev.Board)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event published")
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	ev := domain.NewEvent(domain.EventTaskAdded, "key-1", domain.Seed())
	printEvent(&buf, ev)

	line := buf.String()
	if !strings.Contains(line, domain.EventTaskAdded) || !strings.Contains(line, "key-1") || !strings.Contains(line, "columns=3 tasks=0") {
		t.Fatalf("unexpected line %q", line)
	}
}
