package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the report as a workbook, one worksheet per table.
func WriteXLSX(w io.Writer, r *Report) error {
	f, err := workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes the report into dir under its FileName and returns the path.
func SaveXLSX(dir string, r *Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	f, err := workbook(r)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, r.FileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook %s: %w", path, err)
	}
	return path, nil
}

func workbook(r *Report) (*excelize.File, error) {
	if len(r.Sheets) == 0 {
		return nil, fmt.Errorf("report %q has no sheets", r.Title)
	}

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	// Built-in number format 2 is "0.00".
	decimal2, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create number style: %w", err)
	}

	for i, t := range r.Sheets {
		if i == 0 {
			err = f.SetSheetName("Sheet1", t.Name)
		} else {
			_, err = f.NewSheet(t.Name)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", t.Name, err)
		}
		if err := writeTable(f, t, bold, decimal2); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeTable(f *excelize.File, t Table, headerStyle, numberStyle int) error {
	row := 1
	if len(t.Header) > 0 {
		header := make([]any, len(t.Header))
		for i, h := range t.Header {
			header[i] = h
		}
		if err := setRow(f, t.Name, row, header); err != nil {
			return err
		}
		if err := f.SetRowStyle(t.Name, row, row, headerStyle); err != nil {
			return fmt.Errorf("style header of %s: %w", t.Name, err)
		}
		row++
	}
	first := row
	for i := range t.Rows {
		if err := setRow(f, t.Name, row, t.Values(i)); err != nil {
			return err
		}
		row++
	}
	if len(t.Rows) > 0 {
		for _, col := range t.Numeric {
			top, err := excelize.CoordinatesToCellName(col+1, first)
			if err != nil {
				return err
			}
			bottom, err := excelize.CoordinatesToCellName(col+1, row-1)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(t.Name, top, bottom, numberStyle); err != nil {
				return fmt.Errorf("style numbers of %s: %w", t.Name, err)
			}
		}
	}

	cols := len(t.Header)
	for _, cells := range t.Rows {
		cols = max(cols, len(cells))
	}
	if cols > 0 {
		last, err := excelize.ColumnNumberToName(cols)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(t.Name, "A", last, 20); err != nil {
			return fmt.Errorf("size columns of %s: %w", t.Name, err)
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
