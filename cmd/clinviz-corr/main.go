package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clinviz/internal/correlation"
	"clinviz/internal/dataset"
	"clinviz/internal/render"
)

func main() {
	input := flag.String("in", "", "dataset file (.csv, .xlsx)")
	sheet := flag.String("sheet", "", "worksheet name for spreadsheet input (auto-detected when empty)")
	columns := flag.String("columns", "", "comma-separated numeric columns (all numeric when empty)")
	method := flag.String("method", "pearson", "correlation method: pearson or spearman")
	triangle := flag.String("triangle", "lower", "matrix half to keep: lower or upper")
	diagonal := flag.Bool("diagonal", false, "keep the matrix diagonal")
	sentinel := flag.Bool("sentinel", false, "substitute a tiny sentinel p-value for undefined cells")
	outDir := flag.String("out", "corr", "output directory")
	width := flag.Int("width", 900, "heatmap width in pixels")
	height := flag.Int("height", 900, "heatmap height in pixels")
	flag.Parse()

	if *input == "" {
		slog.Error("no input dataset, use -in")
		flag.Usage()
		os.Exit(1)
	}

	opts := correlation.DefaultOptions()
	switch strings.ToLower(*method) {
	case "pearson":
		opts.Method = correlation.Pearson
	case "spearman":
		opts.Method = correlation.Spearman
	default:
		slog.Error("unknown method", "method", *method)
		os.Exit(1)
	}
	switch strings.ToLower(*triangle) {
	case "lower":
		opts.Triangle = correlation.Lower
	case "upper":
		opts.Triangle = correlation.Upper
	default:
		slog.Error("unknown triangle", "triangle", *triangle)
		os.Exit(1)
	}
	opts.IncludeDiagonal = *diagonal
	opts.SentinelSubstitution = *sentinel

	var table *dataset.Table
	var err error
	ext := strings.ToLower(filepath.Ext(*input))
	if *sheet != "" && (ext == ".xlsx" || ext == ".xlsm") {
		table, err = dataset.LoadXLSX(*input, *sheet)
	} else {
		table, err = dataset.Load(*input)
	}
	if err != nil {
		slog.Error("failed to load dataset", "path", *input, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	cols := splitList(*columns)
	matrix, err := correlation.Compute(ctx, table, opts, cols...)
	if err != nil {
		slog.Error("correlation failed", "error", err)
		os.Exit(1)
	}
	pairs := correlation.Flatten(matrix, opts)
	slog.Info("correlation computed",
		"method", string(matrix.Method),
		"variables", matrix.Dim(),
		"pairs", len(pairs))

	for _, p := range pairs {
		fmt.Println(p.Hover)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		slog.Error("failed to create output directory", "dir", *outDir, "error", err)
		os.Exit(1)
	}

	hc := render.DefaultHeatmapConfig()
	hc.Width, hc.Height = *width, *height
	pngPath := filepath.Join(*outDir, "heatmap.png")
	if err := render.HeatmapPNG(pngPath, matrix, pairs, hc); err != nil {
		slog.Error("failed to render heatmap", "error", err)
		os.Exit(1)
	}
	fmt.Println("wrote", pngPath)

	widgetPath := filepath.Join(*outDir, "heatmap.html")
	if err := render.HeatmapWidget(widgetPath, matrix, pairs, render.WidgetConfig{}); err != nil {
		slog.Error("failed to render heatmap widget", "error", err)
		os.Exit(1)
	}
	fmt.Println("wrote", widgetPath)
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
