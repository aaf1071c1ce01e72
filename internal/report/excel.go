package report

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes the report tables to an xlsx workbook, one sheet per
// table.
type ExcelExporter struct{}

// NewExcelExporter creates an exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Export builds the workbook. The caller closes the returned file.
func (e *ExcelExporter) Export(res *pipeline.Result) (*excelize.File, error) {
	if res == nil {
		return nil, fmt.Errorf("no result to export")
	}

	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, t := range Tables(res) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", t.Name, err)
		}
		if err := writeSheet(f, t, headerStyle); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", t.Name, err)
	}
	if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", t.Name, err)
	}

	for i, row := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(t.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", t.Name, i+1, err)
		}
	}

	last, err := excelize.ColumnNumberToName(len(t.Header))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(t.Name, "A", last, 18); err != nil {
		return fmt.Errorf("failed to size %s columns: %w", t.Name, err)
	}
	return nil
}

// Write streams the workbook to w.
func (e *ExcelExporter) Write(w io.Writer, res *pipeline.Result) error {
	f, err := e.Export(res)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close workbook", "error", err)
		}
	}()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook to path.
func (e *ExcelExporter) WriteFile(res *pipeline.Result, path string) error {
	f, err := e.Export(res)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Failed to close workbook", "error", err)
		}
	}()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	slog.Info("Wrote workbook", "path", path, "run_id", res.ID)
	return nil
}
