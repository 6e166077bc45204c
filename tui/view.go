package tui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"kanban/domain"
)

const defaultColumnWidth = 24

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	focusedColumnStyle = columnStyle.BorderForeground(lipgloss.Color("62"))
	grabbedColumnStyle = columnStyle.
				Border(lipgloss.DoubleBorder()).
				BorderForeground(lipgloss.Color("205"))

	titleStyle        = lipgloss.NewStyle().Bold(true)
	selectedTaskStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	dropStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	leavingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	statusStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	helpStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var helpText = map[mode]string{
	modeNormal:        "h/l column · j/k task · a add · e edit · x delete · A add column · r rename · X delete column · m move task · M move column · q quit",
	modeInput:         "enter save · esc cancel",
	modeConfirmDelete: "y delete · any other key keeps the column",
	modeGrabTask:      "h/j/k/l choose spot · enter drop · esc cancel",
	modeGrabColumn:    "h/l choose spot · enter drop · esc cancel",
}

func (m *Model) View() string {
	var b strings.Builder

	cols := m.previewColumns()
	if len(cols) == 0 {
		b.WriteString("No columns yet. Press A to add one.")
	} else {
		width := m.columnWidth(len(cols))
		rendered := make([]string, 0, len(cols))
		for i, col := range cols {
			rendered = append(rendered, m.renderColumn(i, col, width))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}
	b.WriteString("\n")

	switch m.mode {
	case modeInput:
		b.WriteString(inputPrompts[m.action] + m.input.View() + "\n")
	case modeConfirmDelete:
		title := m.board.Columns[m.target].Title
		fmt.Fprintf(&b, "Delete column %q and all its tasks? (y/n)\n", title)
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render(helpText[m.mode]))
	return b.String()
}

// previewColumns is the column order as it would look after dropping a
// grabbed column.
func (m *Model) previewColumns() []domain.Column {
	cols := m.board.OrderedColumns()
	if m.mode != modeGrabColumn {
		return cols
	}
	from := slices.IndexFunc(cols, func(c domain.Column) bool { return c.ID == m.grab.id })
	if from < 0 {
		return cols
	}
	grabbed := cols[from]
	rest := slices.Delete(slices.Clone(cols), from, from+1)
	return slices.Insert(rest, clamp(m.grab.col, 0, len(rest)), grabbed)
}

func (m *Model) renderColumn(i int, col domain.Column, width int) string {
	lines := []string{titleStyle.Render(fmt.Sprintf("%s (%d)", col.Title, len(col.TaskIDs)))}

	ids := col.TaskIDs
	if m.mode == modeGrabTask && m.grab.col == i {
		// "" marks where the grabbed task would land
		ids = slices.Insert(slices.DeleteFunc(slices.Clone(ids), func(id string) bool { return id == m.grab.id }),
			clamp(m.grab.row, 0, len(ids)), "")
	}

	for j, id := range ids {
		switch {
		case id == "":
			lines = append(lines, dropStyle.Render("▸ "+m.board.Tasks[m.grab.id].Content))
		case m.mode == modeGrabTask && id == m.grab.id:
			lines = append(lines, leavingStyle.Render(m.board.Tasks[id].Content))
		case m.mode == modeNormal && i == m.col && j == m.row:
			lines = append(lines, selectedTaskStyle.Render(m.board.Tasks[id].Content))
		default:
			lines = append(lines, m.board.Tasks[id].Content)
		}
	}

	style := columnStyle
	switch {
	case m.mode == modeGrabColumn && col.ID == m.grab.id:
		style = grabbedColumnStyle
	case m.mode != modeGrabColumn && i == m.col:
		style = focusedColumnStyle
	}
	return style.Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) columnWidth(n int) int {
	if m.width == 0 || n == 0 {
		return defaultColumnWidth
	}
	return max(16, m.width/n-4)
}
