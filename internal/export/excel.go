// Package export renders payment audit trails as Excel workbooks for the
// finance team.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"carbooker/internal/models"
)

const historySheet = "Payment History"

// Exporter writes workbooks into a dedicated directory; each file gets a
// unique name so concurrent exports never clobber each other.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// PaymentHistory writes the entries to a new .xlsx file and returns its path.
func (e *Exporter) PaymentHistory(entries []*models.PaymentHistory) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(historySheet)
	if err != nil {
		return "", fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"ID", "Payment ID", "Action", "Amount", "Status", "Details", "Performed By", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(historySheet, cell, h)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(historySheet, "A1", last, headerStyle)
	}

	for i, entry := range entries {
		row := i + 2
		values := []interface{}{
			entry.ID,
			entry.PaymentID,
			entry.Action,
			entry.Amount,
			entry.Status,
			entry.Details,
			entry.PerformedBy,
			entry.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(historySheet, cell, v)
		}
	}

	_ = f.SetColWidth(historySheet, "A", "B", 12)
	_ = f.SetColWidth(historySheet, "C", "E", 14)
	_ = f.SetColWidth(historySheet, "F", "F", 40)
	_ = f.SetColWidth(historySheet, "G", "H", 20)

	path := filepath.Join(e.dir, fmt.Sprintf("payment_history_%s.xlsx", uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}
