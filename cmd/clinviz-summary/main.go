package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clinviz/internal/dataset"
	"clinviz/internal/describe"
)

func main() {
	input := flag.String("in", "", "dataset file (.csv, .xlsx)")
	sheet := flag.String("sheet", "", "worksheet name for spreadsheet input (auto-detected when empty)")
	columns := flag.String("columns", "", "comma-separated columns to summarize (all when empty)")
	group := flag.String("group", "", "grouping column for stratified summaries")
	outDir := flag.String("out", "tables", "output directory for summary tables")
	formats := flag.String("format", "csv,json", "comma-separated output formats: csv, json, xlsx, html")
	maxLevels := flag.Int("max-levels", 20, "maximum categorical levels reported per column")
	flag.Parse()

	if *input == "" {
		slog.Error("no input dataset, use -in")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	table, err := loadDataset(*input, *sheet)
	if err != nil {
		slog.Error("failed to load dataset", "path", *input, "error", err)
		os.Exit(1)
	}
	slog.Info("dataset loaded",
		"name", table.Name(),
		"rows", table.Rows(),
		"columns", len(table.Columns()))

	summarizer := describe.NewSummarizer(slog.Default(), describe.SummarizerConfig{MaxLevels: *maxLevels})

	cols := splitList(*columns)
	summaries, err := summarizer.Summarize(ctx, table, cols...)
	if err != nil {
		slog.Error("summary failed", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	for _, format := range splitList(*formats) {
		path := filepath.Join(*outDir, "summary."+format)
		var werr error
		switch format {
		case "csv":
			werr = summarizer.WriteCSV(ctx, path, summaries)
		case "json":
			werr = summarizer.WriteJSON(ctx, path, summaries)
		case "xlsx":
			werr = summarizer.WriteXLSX(ctx, path, summaries)
		case "html":
			werr = summarizer.WriteHTML(ctx, path, summaries)
		default:
			slog.Error("unknown output format", "format", format)
			os.Exit(1)
		}
		if werr != nil {
			slog.Error("failed to write summary", "path", path, "error", werr)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
	}

	if *group != "" {
		grouped, err := summarizer.SummarizeBy(ctx, table, *group, cols...)
		if err != nil {
			slog.Error("grouped summary failed", "group", *group, "error", err)
			os.Exit(1)
		}
		for _, slice := range grouped.Groups {
			path := filepath.Join(*outDir, fmt.Sprintf("summary_%s_%s.csv", *group, sanitize(slice.Level)))
			if err := summarizer.WriteCSV(ctx, path, slice.Columns); err != nil {
				slog.Error("failed to write grouped summary", "path", path, "error", err)
				os.Exit(1)
			}
			fmt.Println("wrote", path)
		}
	}
}

func loadDataset(path, sheet string) (*dataset.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if sheet != "" && (ext == ".xlsx" || ext == ".xlsm") {
		return dataset.LoadXLSX(path, sheet)
	}
	return dataset.Load(path)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
