package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"clinviz/internal/config"
	"clinviz/internal/correlation"
	"clinviz/internal/dataset"
	"clinviz/internal/infrastructure"
	"clinviz/internal/report"
)

func main() {
	input := flag.String("in", "", "dataset file (.csv, .xlsx)")
	sheet := flag.String("sheet", "", "worksheet name for spreadsheet input")
	summaryCols := flag.String("summary", "", "comma-separated columns to summarize (all when empty)")
	group := flag.String("group", "", "grouping column for stratified summaries")
	corrCols := flag.String("corr", "", "comma-separated columns for the correlation matrix")
	method := flag.String("method", "pearson", "correlation method: pearson or spearman")
	scatters := flag.String("scatter", "", "scatter specs name:y:x[:size[:series[:hover]]], semicolon-separated")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	if *input == "" {
		logger.Error("no input dataset, use -in")
		flag.Usage()
		os.Exit(1)
	}

	paths, err := config.ResolvePaths(cfg)
	if err != nil {
		logger.Error("failed to resolve paths", "error", err)
		os.Exit(1)
	}

	var table *dataset.Table
	if *sheet != "" {
		table, err = dataset.LoadXLSX(*input, *sheet)
	} else {
		table, err = dataset.Load(*input)
	}
	if err != nil {
		logger.Error("failed to load dataset", "path", *input, "error", err)
		os.Exit(1)
	}

	opts := correlation.DefaultOptions()
	if strings.EqualFold(*method, "spearman") {
		opts.Method = correlation.Spearman
	}

	spec := report.Spec{
		Table:              table,
		SummaryColumns:     splitList(*summaryCols),
		GroupColumn:        *group,
		CorrelationColumns: splitList(*corrCols),
		CorrOptions:        opts,
	}
	spec.Scatters, err = parseScatters(*scatters)
	if err != nil {
		logger.Error("invalid scatter spec", "error", err)
		os.Exit(1)
	}

	builder := report.NewBuilder(logger, cfg.Report, *paths)
	meta, err := builder.Build(context.Background(), spec)
	if err != nil {
		logger.Error("report build failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("report %s built: %d files under %s\n", meta.ID, len(meta.Files), paths.SiteDir)
}

// parseScatters parses "name:y:x[:size[:series[:hover]]]" specs separated by
// semicolons.
func parseScatters(s string) ([]report.ScatterSpec, error) {
	if s == "" {
		return nil, nil
	}
	var specs []report.ScatterSpec
	for _, raw := range strings.Split(s, ";") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) < 3 {
			return nil, fmt.Errorf("scatter spec %q needs at least name:y:x", raw)
		}
		sc := report.ScatterSpec{Name: parts[0], Y: parts[1], X: parts[2]}
		if len(parts) > 3 {
			sc.Size = parts[3]
		}
		if len(parts) > 4 {
			sc.Series = parts[4]
		}
		if len(parts) > 5 {
			sc.Hover = parts[5]
		}
		specs = append(specs, sc)
	}
	return specs, nil
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
