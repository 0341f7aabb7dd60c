package describe

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"clinviz/internal/dataset"
	"clinviz/internal/errors"
)

var csvHeader = []string{
	"Name", "Label", "Kind", "N", "Missing",
	"Mean", "SD", "Median", "Min", "Max", "Q1", "Q3", "Levels",
}

// WriteCSV writes the summary table to a CSV file, one row per column.
func (s *Summarizer) WriteCSV(ctx context.Context, path string, summaries []ColumnSummary) error {
	s.logger.InfoContext(ctx, "writing summary table to CSV",
		slog.String("path", path),
		slog.Int("columns", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for CSV output", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create CSV summary file", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return errors.NewStorageError("failed to write CSV header row", err)
	}

	for _, summary := range summaries {
		if err := writer.Write(csvRow(summary)); err != nil {
			return errors.NewStorageError("failed to write CSV data row", err)
		}
	}

	return nil
}

func csvRow(s ColumnSummary) []string {
	row := []string{
		s.Name,
		s.Label,
		string(s.Kind),
		fmt.Sprintf("%d", s.N),
		fmt.Sprintf("%d", s.Missing),
	}
	if s.Kind == dataset.KindNumeric && s.N > 0 {
		row = append(row,
			fmt.Sprintf("%.3f", s.Mean),
			fmt.Sprintf("%.3f", s.SD),
			fmt.Sprintf("%.3f", s.Median),
			fmt.Sprintf("%.3f", s.Min),
			fmt.Sprintf("%.3f", s.Max),
			fmt.Sprintf("%.3f", s.Q1),
			fmt.Sprintf("%.3f", s.Q3),
			"",
		)
	} else {
		row = append(row, "", "", "", "", "", "", "", formatLevels(s.Levels))
	}
	return row
}

func formatLevels(levels []LevelCount) string {
	if len(levels) == 0 {
		return ""
	}
	parts := make([]string, len(levels))
	for i, lc := range levels {
		parts[i] = fmt.Sprintf("%s:%d (%.1f%%)", lc.Level, lc.Count, lc.Percent)
	}
	return strings.Join(parts, "; ")
}

// WriteJSON writes the summaries as a JSON document with metadata.
func (s *Summarizer) WriteJSON(ctx context.Context, path string, summaries []ColumnSummary) error {
	s.logger.InfoContext(ctx, "writing summary table to JSON",
		slog.String("path", path),
		slog.Int("columns", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for JSON output", err)
	}

	jsonData := map[string]interface{}{
		"columns":      summaries,
		"count":        len(summaries),
		"generated_at": time.Now().Format(time.RFC3339),
		"format":       "column_summary_v1",
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create JSON summary file", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(jsonData); err != nil {
		return errors.NewStorageError("failed to encode summaries to JSON", err)
	}

	return nil
}

// WriteXLSX writes the summary table as a spreadsheet, the analog of the
// word-processor summary table in the source workflow.
func (s *Summarizer) WriteXLSX(ctx context.Context, path string, summaries []ColumnSummary) error {
	s.logger.InfoContext(ctx, "writing summary table to XLSX",
		slog.String("path", path),
		slog.Int("columns", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for XLSX output", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.NewStorageError("failed to name summary sheet", err)
	}

	header := make([]interface{}, len(csvHeader))
	for i, h := range csvHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.NewStorageError("failed to write XLSX header row", err)
	}

	for i, summary := range summaries {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.NewStorageError("failed to compute XLSX cell name", err)
		}
		strRow := csvRow(summary)
		row := make([]interface{}, len(strRow))
		for j, v := range strRow {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewStorageError("failed to write XLSX data row", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("failed to save XLSX summary file", err)
	}
	return nil
}

var summaryTableTmpl = template.Must(template.New("summary").Parse(`<table class="summary-table">
<thead><tr><th>Variable</th><th>Kind</th><th>N</th><th>Missing</th><th>Summary</th></tr></thead>
<tbody>
{{- range . }}
<tr><td>{{ .Label }}</td><td>{{ .Kind }}</td><td>{{ .N }}</td><td>{{ .Missing }}</td><td>{{ .Text }}</td></tr>
{{- end }}
</tbody>
</table>
`))

type htmlRow struct {
	Label   string
	Kind    dataset.ColumnKind
	N       int
	Missing int
	Text    string
}

// WriteHTML writes the summaries as a self-contained HTML table fragment.
func (s *Summarizer) WriteHTML(ctx context.Context, path string, summaries []ColumnSummary) error {
	s.logger.InfoContext(ctx, "writing summary table to HTML",
		slog.String("path", path),
		slog.Int("columns", len(summaries)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for HTML output", err)
	}

	rows := make([]htmlRow, len(summaries))
	for i, summary := range summaries {
		rows[i] = htmlRow{
			Label:   summary.Label,
			Kind:    summary.Kind,
			N:       summary.N,
			Missing: summary.Missing,
			Text:    summaryText(summary),
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create HTML summary file", err)
	}
	defer file.Close()

	if err := summaryTableTmpl.Execute(file, rows); err != nil {
		return errors.NewRenderError("failed to render HTML summary table", err)
	}
	return nil
}

// HTMLFragment renders the summary table to a string for embedding in the
// report page.
func (s *Summarizer) HTMLFragment(summaries []ColumnSummary) (template.HTML, error) {
	rows := make([]htmlRow, len(summaries))
	for i, summary := range summaries {
		rows[i] = htmlRow{
			Label:   summary.Label,
			Kind:    summary.Kind,
			N:       summary.N,
			Missing: summary.Missing,
			Text:    summaryText(summary),
		}
	}
	var b strings.Builder
	if err := summaryTableTmpl.Execute(&b, rows); err != nil {
		return "", errors.NewRenderError("failed to render HTML summary fragment", err)
	}
	return template.HTML(b.String()), nil
}

func summaryText(s ColumnSummary) string {
	switch {
	case s.Kind == dataset.KindNumeric && s.N > 0:
		return fmt.Sprintf("mean %.2f (SD %.2f), median %.2f [%.2f, %.2f], range %.2f to %.2f",
			s.Mean, s.SD, s.Median, s.Q1, s.Q3, s.Min, s.Max)
	case len(s.Levels) > 0:
		return formatLevels(s.Levels)
	default:
		return ""
	}
}
