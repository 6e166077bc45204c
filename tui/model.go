// Package tui is a terminal front end for a single board. It follows the
// bubbletea loop: key messages go through Update, which asks the domain
// Manager for the next board and saves it, and View renders the result.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"kanban/domain"
)

// Saver persists the board after every change.
type Saver interface {
	Save(ctx context.Context, b domain.Board)
}

type nopSaver struct{}

func (nopSaver) Save(context.Context, domain.Board) {}

// BoardMsg replaces the displayed board, e.g. after a change made by
// another client.
type BoardMsg struct {
	Board domain.Board
}

type mode int

const (
	modeNormal mode = iota
	modeInput
	modeConfirmDelete
	modeGrabTask
	modeGrabColumn
)

type inputAction int

const (
	inputAddTask inputAction = iota
	inputEditTask
	inputAddColumn
	inputRenameColumn
)

var inputPrompts = map[inputAction]string{
	inputAddTask:      "New task: ",
	inputEditTask:     "Edit task: ",
	inputAddColumn:    "New column: ",
	inputRenameColumn: "Rename column: ",
}

// grab is the item picked up with m or M and where it would land.
type grab struct {
	id        string
	fromCol   string
	fromIndex int
	col       int
	row       int
}

// Model is the bubbletea model for the board screen.
type Model struct {
	board   domain.Board
	manager *domain.Manager
	saver   Saver
	logger  *log.Logger

	// focus: column position in display order and task position within it
	col int
	row int

	mode   mode
	action inputAction
	target string
	input  textinput.Model
	grab   grab

	status string
	width  int
	height int
}

// New creates the board screen. manager, saver and logger may be nil.
func New(b domain.Board, manager *domain.Manager, saver Saver, logger *log.Logger) *Model {
	if manager == nil {
		manager = domain.NewManager(nil)
	}
	if saver == nil {
		saver = nopSaver{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	in := textinput.New()
	in.CharLimit = 500
	in.Prompt = ""
	return &Model{
		board:   b,
		manager: manager,
		saver:   saver,
		logger:  logger,
		input:   in,
	}
}

// Board returns the board currently shown.
func (m *Model) Board() domain.Board { return m.board }

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-20)
		return m, nil

	case BoardMsg:
		m.board = msg.Board
		if m.mode == modeGrabTask || m.mode == modeGrabColumn {
			m.mode = modeNormal
			m.status = "board changed elsewhere, move cancelled"
		}
		m.clampFocus()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeNormal:
			return m.updateNormal(msg)
		case modeInput:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		case modeGrabTask:
			return m.updateGrabTask(msg)
		case modeGrabColumn:
			return m.updateGrabColumn(msg)
		}
	}
	return m, nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "h", "left":
		m.col--
	case "l", "right":
		m.col++
	case "k", "up":
		m.row--
	case "j", "down":
		m.row++

	case "a":
		if col, ok := m.focusedColumn(); ok {
			return m, m.startInput(inputAddTask, col.ID, "")
		}
	case "e":
		if task, ok := m.focusedTask(); ok {
			return m, m.startInput(inputEditTask, task.ID, task.Content)
		}
	case "x":
		if task, ok := m.focusedTask(); ok {
			col, _ := m.focusedColumn()
			if m.commit(m.manager.DeleteTask(m.board, task.ID, col.ID)) {
				m.status = "task deleted"
			}
		}

	case "A":
		return m, m.startInput(inputAddColumn, "", "")
	case "r":
		if col, ok := m.focusedColumn(); ok {
			return m, m.startInput(inputRenameColumn, col.ID, col.Title)
		}
	case "X":
		if col, ok := m.focusedColumn(); ok {
			m.mode = modeConfirmDelete
			m.target = col.ID
		}

	case "m":
		if task, ok := m.focusedTask(); ok {
			col, _ := m.focusedColumn()
			m.grab = grab{id: task.ID, fromCol: col.ID, fromIndex: m.row, col: m.col, row: m.row}
			m.mode = modeGrabTask
		}
	case "M":
		if col, ok := m.focusedColumn(); ok {
			m.grab = grab{id: col.ID, fromIndex: m.col, col: m.col}
			m.mode = modeGrabColumn
		}
	}

	m.clampFocus()
	return m, nil
}

func (m *Model) startInput(action inputAction, target, value string) tea.Cmd {
	m.mode = modeInput
	m.action = action
	m.target = target
	m.input.Reset()
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		m.mode = modeNormal
		m.input.Blur()
		m.submit(value)
		m.clampFocus()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(value string) {
	switch m.action {
	case inputAddTask:
		if m.commit(m.manager.AddTask(m.board, m.target, value)) {
			m.col = m.board.ColumnIndex(m.target)
			m.row = len(m.board.Columns[m.target].TaskIDs) - 1
			m.status = "task added"
		}
	case inputEditTask:
		if m.commit(m.manager.EditTask(m.board, m.target, value)) {
			m.status = "task updated"
		}
	case inputAddColumn:
		if m.commit(m.manager.AddColumn(m.board, value)) {
			m.col = len(m.board.ColumnOrder) - 1
			m.row = 0
			m.status = "column added"
		}
	case inputRenameColumn:
		if m.commit(m.manager.RenameColumn(m.board, m.target, value)) {
			m.status = "column renamed"
		}
	}
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	switch msg.String() {
	case "y", "Y":
		if m.commit(m.manager.DeleteColumn(m.board, m.target)) {
			m.status = "column deleted"
		}
	default:
		m.status = "column kept"
	}
	m.clampFocus()
	return m, nil
}

func (m *Model) updateGrabTask(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.board.OrderedColumns()

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.status = "move cancelled"
	case "h", "left":
		m.grab.col = clamp(m.grab.col-1, 0, len(cols)-1)
		m.grab.row = clamp(m.grab.row, 0, m.dropLimit(cols))
	case "l", "right":
		m.grab.col = clamp(m.grab.col+1, 0, len(cols)-1)
		m.grab.row = clamp(m.grab.row, 0, m.dropLimit(cols))
	case "k", "up":
		m.grab.row = clamp(m.grab.row-1, 0, m.dropLimit(cols))
	case "j", "down":
		m.grab.row = clamp(m.grab.row+1, 0, m.dropLimit(cols))
	case "enter":
		m.mode = modeNormal
		drag := domain.TaskDrag{
			ID:         m.grab.id,
			FromColumn: m.grab.fromCol,
			ToColumn:   cols[m.grab.col].ID,
			FromIndex:  m.grab.fromIndex,
			ToIndex:    m.grab.row,
		}
		if m.commit(m.manager.ApplyDrag(m.board, drag)) {
			m.col, m.row = m.grab.col, m.grab.row
			m.status = "task moved"
		}
		m.clampFocus()
	}
	return m, nil
}

// dropLimit is the last index the grabbed task can be dropped at in the
// target column. Within its own column the task is not counted.
func (m *Model) dropLimit(cols []domain.Column) int {
	target := cols[m.grab.col]
	if target.ID == m.grab.fromCol {
		return len(target.TaskIDs) - 1
	}
	return len(target.TaskIDs)
}

func (m *Model) updateGrabColumn(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	last := len(m.board.ColumnOrder) - 1

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.status = "move cancelled"
	case "h", "left":
		m.grab.col = clamp(m.grab.col-1, 0, last)
	case "l", "right":
		m.grab.col = clamp(m.grab.col+1, 0, last)
	case "enter":
		m.mode = modeNormal
		drag := domain.ColumnDrag{ID: m.grab.id, FromIndex: m.grab.fromIndex, ToIndex: m.grab.col}
		if m.commit(m.manager.ApplyDrag(m.board, drag)) {
			m.col, m.row = m.grab.col, 0
			m.status = "column moved"
		}
		m.clampFocus()
	}
	return m, nil
}

// commit installs next and saves it when the transition changed anything.
func (m *Model) commit(next domain.Board, changed bool) bool {
	if !changed {
		m.status = "nothing changed"
		return false
	}
	m.board = next
	m.saver.Save(context.Background(), next)
	m.logger.WithFields(log.Fields{
		"columns": len(next.ColumnOrder),
		"tasks":   len(next.Tasks),
	}).Debug("board changed")
	return true
}

func (m *Model) focusedColumn() (domain.Column, bool) {
	cols := m.board.OrderedColumns()
	if m.col < 0 || m.col >= len(cols) {
		return domain.Column{}, false
	}
	return cols[m.col], true
}

func (m *Model) focusedTask() (domain.Task, bool) {
	col, ok := m.focusedColumn()
	if !ok || m.row < 0 || m.row >= len(col.TaskIDs) {
		return domain.Task{}, false
	}
	task, ok := m.board.Tasks[col.TaskIDs[m.row]]
	return task, ok
}

func (m *Model) clampFocus() {
	cols := m.board.OrderedColumns()
	if len(cols) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = clamp(m.col, 0, len(cols)-1)
	m.row = clamp(m.row, 0, len(cols[m.col].TaskIDs)-1)
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
