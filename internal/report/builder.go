package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clinviz/internal/config"
	"clinviz/internal/correlation"
	"clinviz/internal/dataset"
	"clinviz/internal/describe"
	"clinviz/internal/errors"
	"clinviz/internal/render"
)

// Builder assembles a self-contained static report site from a dataset:
// descriptive tables, a correlation heatmap (raster and widget), optional
// scatter widgets, and an index page tying them together.
type Builder struct {
	logger *slog.Logger
	cfg    config.ReportConfig
	paths  config.Paths
}

// Spec describes one report build.
type Spec struct {
	Table *dataset.Table

	// SummaryColumns are summarized in the descriptive table; empty means
	// every column.
	SummaryColumns []string
	// GroupColumn, when set, adds grouped summaries stratified by its levels.
	GroupColumn string

	// CorrelationColumns feed the correlation matrix; empty skips it.
	CorrelationColumns []string
	CorrOptions        correlation.Options

	Scatters []ScatterSpec
}

// ScatterSpec requests one scatter (or bubble) widget from dataset columns.
type ScatterSpec struct {
	Name   string // file stem, e.g. "phq9_vs_eq5d"
	X, Y   string
	Size   string // optional numeric column driving bubble size
	Series string // optional categorical column splitting point colors
	Hover  string // optional column used as per-point hover text
}

// Metadata describes a finished build; it is written to report.json and
// served by the site API.
type Metadata struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	GeneratedAt time.Time          `json:"generated_at"`
	Dataset     string             `json:"dataset"`
	Rows        int                `json:"rows"`
	Columns     int                `json:"columns"`
	Method      correlation.Method `json:"method,omitempty"`
	Files       []string           `json:"files"`
}

// NewBuilder creates a report builder writing under the configured site dir.
func NewBuilder(logger *slog.Logger, cfg config.ReportConfig, paths config.Paths) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger, cfg: cfg, paths: paths}
}

// Build runs the full pipeline and returns the report metadata. File exports
// fan out concurrently, bounded by the configured parallelism.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Metadata, error) {
	if spec.Table == nil {
		return nil, errors.NewValidationError("report requires a dataset")
	}
	start := time.Now()

	meta := &Metadata{
		ID:          uuid.New().String(),
		Title:       b.cfg.Title,
		GeneratedAt: start.UTC(),
		Dataset:     spec.Table.Name(),
		Rows:        spec.Table.Rows(),
		Columns:     len(spec.Table.Columns()),
	}
	b.logger.InfoContext(ctx, "starting report build",
		slog.String("report_id", meta.ID),
		slog.String("dataset", meta.Dataset),
		slog.Int("rows", meta.Rows))

	if err := b.paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	summarizer := describe.NewSummarizer(b.logger, describe.DefaultSummarizerConfig())
	summaries, err := summarizer.Summarize(ctx, spec.Table, spec.SummaryColumns...)
	if err != nil {
		return nil, err
	}

	var grouped *describe.GroupedSummary
	if spec.GroupColumn != "" {
		grouped, err = summarizer.SummarizeBy(ctx, spec.Table, spec.GroupColumn, spec.SummaryColumns...)
		if err != nil {
			return nil, err
		}
	}

	var matrix *correlation.Matrix
	var pairs []correlation.Pair
	if len(spec.CorrelationColumns) > 0 {
		matrix, err = correlation.Compute(ctx, spec.Table, spec.CorrOptions, spec.CorrelationColumns...)
		if err != nil {
			return nil, err
		}
		pairs = correlation.Flatten(matrix, spec.CorrOptions)
		meta.Method = matrix.Method
	}

	g, gctx := errgroup.WithContext(ctx)
	limit := b.cfg.MaxParallel
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	files := newFileList()

	g.Go(func() error {
		p := filepath.Join(b.paths.TablesDir, "summary.csv")
		if err := summarizer.WriteCSV(gctx, p, summaries); err != nil {
			return err
		}
		files.add(b.rel(p))
		return nil
	})
	g.Go(func() error {
		p := filepath.Join(b.paths.TablesDir, "summary.json")
		if err := summarizer.WriteJSON(gctx, p, summaries); err != nil {
			return err
		}
		files.add(b.rel(p))
		return nil
	})
	g.Go(func() error {
		p := filepath.Join(b.paths.TablesDir, "summary.xlsx")
		if err := summarizer.WriteXLSX(gctx, p, summaries); err != nil {
			return err
		}
		files.add(b.rel(p))
		return nil
	})

	if matrix != nil {
		g.Go(func() error {
			p := filepath.Join(b.paths.ImageDir, "heatmap.png")
			hc := render.DefaultHeatmapConfig()
			hc.Width, hc.Height = b.cfg.HeatmapWidth, b.cfg.HeatmapHeight
			if err := render.HeatmapPNG(p, matrix, pairs, hc); err != nil {
				return err
			}
			files.add(b.rel(p))
			return nil
		})
		g.Go(func() error {
			p := filepath.Join(b.paths.WidgetDir, "heatmap.html")
			if err := render.HeatmapWidget(p, matrix, pairs, render.WidgetConfig{}); err != nil {
				return err
			}
			files.add(b.rel(p))
			return nil
		})
		g.Go(func() error {
			p := filepath.Join(b.paths.TablesDir, "correlations.csv")
			if err := writePairsCSV(p, pairs); err != nil {
				return err
			}
			files.add(b.rel(p))
			return nil
		})
	}

	for _, sc := range spec.Scatters {
		sc := sc
		g.Go(func() error {
			paths, err := b.buildScatter(spec.Table, sc)
			if err != nil {
				return err
			}
			files.add(paths...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	meta.Files = files.sorted()

	if err := b.writeIndex(meta, summaries, grouped, matrix, pairs, spec.Scatters); err != nil {
		return nil, err
	}
	if err := b.writeMetadata(meta); err != nil {
		return nil, err
	}

	b.logger.InfoContext(ctx, "report build complete",
		slog.String("report_id", meta.ID),
		slog.Int("files", len(meta.Files)),
		slog.Duration("elapsed", time.Since(start)))
	return meta, nil
}

func (b *Builder) buildScatter(table *dataset.Table, sc ScatterSpec) ([]string, error) {
	if sc.Name == "" || sc.X == "" || sc.Y == "" {
		return nil, errors.NewValidationError("scatter spec requires name, x and y columns")
	}
	xs, err := table.NumericColumn(sc.X)
	if err != nil {
		return nil, err
	}
	ys, err := table.NumericColumn(sc.Y)
	if err != nil {
		return nil, err
	}

	var sizes []float64
	if sc.Size != "" {
		if sizes, err = table.NumericColumn(sc.Size); err != nil {
			return nil, err
		}
	}
	var series []string
	if sc.Series != "" {
		if series, err = table.StringColumn(sc.Series); err != nil {
			return nil, err
		}
	}
	var hover []string
	if sc.Hover != "" {
		if hover, err = table.StringColumn(sc.Hover); err != nil {
			return nil, err
		}
	}

	points := make([]render.Point, len(xs))
	for i := range xs {
		points[i] = render.Point{X: xs[i], Y: ys[i]}
		if sizes != nil {
			points[i].Size = sizes[i]
		}
		if series != nil {
			points[i].Series = series[i]
		}
	}

	cfg := render.ScatterConfig{
		Width:  720,
		Height: 480,
		Title:  fmt.Sprintf("%s vs %s", table.Label(sc.Y), table.Label(sc.X)),
		XLabel: table.Label(sc.X),
		YLabel: table.Label(sc.Y),
	}

	pngPath := filepath.Join(b.paths.ImageDir, sc.Name+".png")
	if err := render.ScatterPNG(pngPath, points, cfg); err != nil {
		return nil, err
	}
	widgetPath := filepath.Join(b.paths.WidgetDir, sc.Name+".html")
	if err := render.ScatterWidget(widgetPath, points, hover, cfg); err != nil {
		return nil, err
	}
	return []string{b.rel(pngPath), b.rel(widgetPath)}, nil
}

func (b *Builder) writeMetadata(meta *Metadata) error {
	path := filepath.Join(b.paths.SiteDir, "report.json")
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create report metadata", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return errors.NewStorageError("failed to encode report metadata", err)
	}
	return nil
}

// rel converts an absolute export path into a site-relative link.
func (b *Builder) rel(path string) string {
	r, err := filepath.Rel(b.paths.SiteDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(r)
}
