package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"clinviz/internal/errors"
)

// LoadXLSX reads a spreadsheet dataset. When sheet is empty, the loader picks
// the first sheet that has a plausible header row (at least two non-empty
// cells) followed by at least one data row.
func LoadXLSX(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.NewStorageError("failed to open spreadsheet", err).
			WithContext("path", path)
	}
	defer f.Close()

	rows, sheetName, err := sheetRows(f, sheet)
	if err != nil {
		return nil, err
	}

	records := normalizeRows(rows)
	if len(records) < 2 {
		return nil, errors.NewParsingError(
			fmt.Sprintf("sheet %q has no data rows", sheetName), nil).
			WithContext("path", path)
	}

	return LoadRecords(datasetName(path), records)
}

// sheetRows resolves the sheet to read. An explicitly requested sheet must
// exist; otherwise the sheets are scanned in workbook order.
func sheetRows(f *excelize.File, sheet string) ([][]string, string, error) {
	if sheet != "" {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, "", errors.NewNotFoundError(fmt.Sprintf("sheet %q", sheet))
		}
		return skipLeadingEmpty(rows), sheet, nil
	}

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		rows = skipLeadingEmpty(rows)
		if len(rows) < 2 || !headerPlausible(rows[0]) {
			continue
		}
		return rows, name, nil
	}

	return nil, "", errors.NewParsingError("no sheet with a plausible header row found", nil)
}

// skipLeadingEmpty drops fully empty rows ahead of the header. Clinical
// exports often carry a skipped title row; the first non-empty row is the
// header.
func skipLeadingEmpty(rows [][]string) [][]string {
	for len(rows) > 0 && !rowHasData(rows[0]) {
		rows = rows[1:]
	}
	return rows
}

func rowHasData(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}

func headerPlausible(row []string) bool {
	nonEmpty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	return nonEmpty >= 2
}

// normalizeRows pads short rows to the header width, trims cell whitespace
// and drops fully empty rows.
func normalizeRows(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		rec := make([]string, width)
		hasData := false
		for i := 0; i < width; i++ {
			if i < len(row) {
				rec[i] = strings.TrimSpace(row[i])
			}
			if rec[i] != "" {
				hasData = true
			}
		}
		if !hasData && len(out) > 0 {
			continue
		}
		out = append(out, rec)
	}
	return out
}
