package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/jung-kurt/gofpdf"

	"kanban/domain"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Export renders b in the given format and returns the bytes with their
// content type. An empty format means JSON.
func Export(b domain.Board, format string) ([]byte, string, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		data, err := sonic.ConfigStd.MarshalIndent(b, "", "  ")
		return data, "application/json", err
	case FormatCSV:
		data, err := CSV(b)
		return data, "text/csv; charset=utf-8", err
	case FormatPDF:
		data, err := PDF(b)
		return data, "application/pdf", err
	}
	return nil, "", fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// CSV writes one row per task in board order.
func CSV(b domain.Board) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"column", "position", "task_id", "content"})
	for _, col := range b.OrderedColumns() {
		for i, task := range b.TasksIn(col.ID) {
			_ = w.Write([]string{col.Title, strconv.Itoa(i), task.ID, task.Content})
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PDF renders one section per column.
func PDF(b domain.Board) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Kanban Board")
	pdf.Ln(14)

	for _, col := range b.OrderedColumns() {
		tasks := b.TasksIn(col.ID)
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, tr(fmt.Sprintf("%s (%d)", col.Title, len(tasks))))
		pdf.Ln(9)
		pdf.SetFont("Arial", "", 10)
		if len(tasks) == 0 {
			pdf.MultiCell(0, 6, "-", "0", "L", false)
		}
		for _, task := range tasks {
			pdf.MultiCell(0, 6, tr("- "+task.Content), "0", "L", false)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
