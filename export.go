package contracts

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExportXLSX renders an analysis as a workbook with a "Fields" sheet and,
// when a payment schedule was found, a "Payment Schedule" sheet.
func ExportXLSX(a *ContractAnalysis, tax *Taxonomy) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Fields"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Category", "Field", "Value", "Normalized", "Status", "Page", "Evidence"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range a.Results() {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		category := ""
		if d, ok := tax.Lookup(r.FieldKey); ok {
			category = d.Category
		}
		write(1, category)
		write(2, r.FieldKey)
		write(3, truncate(valueText(r.RawValue), 500))
		write(4, normalizedText(r.NormalizedValue))
		write(5, string(r.Status))
		if r.Page > 0 {
			write(6, r.Page)
		}
		write(7, truncate(r.Evidence, 300))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 20) // category
	_ = f.SetColWidth(sheet, "B", "B", 28) // field
	_ = f.SetColWidth(sheet, "C", "D", 40) // values
	_ = f.SetColWidth(sheet, "E", "F", 12) // status, page
	_ = f.SetColWidth(sheet, "G", "G", 60) // evidence

	if t := a.PaymentSchedule; t != nil && len(t.Headers) > 0 {
		if err := writeTableSheet(f, "Payment Schedule", t); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the workbook from ExportXLSX to w.
func WriteXLSX(w io.Writer, a *ContractAnalysis, tax *Taxonomy) error {
	b, err := ExportXLSX(a, tax)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func writeTableSheet(f *excelize.File, sheet string, t *Table) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	for i, h := range t.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for r, cells := range t.Rows {
		for c, cell := range cells {
			name, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if cell.Amount != nil {
				v, _ := cell.Amount.Float64()
				_ = f.SetCellValue(sheet, name, v)
				continue
			}
			_ = f.SetCellValue(sheet, name, cell.Raw)
		}
	}
	last, _ := excelize.ColumnNumberToName(max(len(t.Headers), 1))
	return f.SetColWidth(sheet, "A", last, 22)
}

func normalizedText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case Money:
		return t.String()
	case []string:
		return strings.Join(t, "; ")
	case *Table:
		return fmt.Sprintf("%d rows", len(t.Rows))
	}
	return valueText(v)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:runeStart(s, n)]
	}
	return s[:runeStart(s, n-1)] + "…"
}
