package render

import (
	"math"
	"os"
	"path/filepath"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"clinviz/internal/errors"
)

// ScatterConfig controls scatter and bubble chart exports.
type ScatterConfig struct {
	Width  int
	Height int
	Title  string
	XLabel string
	YLabel string
}

// Point is one plotted observation. Size drives bubble radius and is ignored
// for plain scatter charts; Series groups points into separately colored
// series (e.g. one per gender).
type Point struct {
	X, Y   float64
	Size   float64
	Series string
}

var seriesPalette = []drawing.Color{
	{R: 68, G: 119, B: 170, A: 255},
	{R: 204, G: 102, B: 119, A: 255},
	{R: 34, G: 136, B: 51, A: 255},
	{R: 238, G: 153, B: 51, A: 255},
	{R: 102, G: 51, B: 153, A: 255},
}

// ScatterPNG renders points as a scatter chart. When any point carries a
// positive Size the dot width scales with it (a bubble chart).
func ScatterPNG(path string, points []Point, cfg ScatterConfig) error {
	complete := make([]Point, 0, len(points))
	for _, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		complete = append(complete, p)
	}
	if len(complete) == 0 {
		return errors.NewValidationError("no complete observations to plot")
	}

	bySeries := map[string][]Point{}
	var order []string
	for _, p := range complete {
		if _, ok := bySeries[p.Series]; !ok {
			order = append(order, p.Series)
		}
		bySeries[p.Series] = append(bySeries[p.Series], p)
	}

	sized := false
	var maxSize float64
	for _, p := range complete {
		if p.Size > 0 {
			sized = true
		}
		if p.Size > maxSize {
			maxSize = p.Size
		}
	}

	series := make([]chart.Series, 0, len(order))
	for i, name := range order {
		pts := bySeries[name]
		xs := make([]float64, len(pts))
		ys := make([]float64, len(pts))
		sizes := make([]float64, len(pts))
		for j, p := range pts {
			xs[j], ys[j], sizes[j] = p.X, p.Y, p.Size
		}

		// points only, no connecting line
		style := chart.Style{
			StrokeWidth: 0,
			DotWidth:    5,
			DotColor:    seriesPalette[i%len(seriesPalette)],
		}
		if sized && maxSize > 0 {
			local := sizes
			style.DotWidthProvider = func(xrange, yrange chart.Range, index int, x, y float64) float64 {
				// 3..15 px radius scaled by relative size
				return 3 + 12*(local[index]/maxSize)
			}
		}

		series = append(series, chart.ContinuousSeries{
			Name:    name,
			Style:   style,
			XValues: xs,
			YValues: ys,
		})
	}

	graph := chart.Chart{
		Title:  cfg.Title,
		Width:  cfg.Width,
		Height: cfg.Height,
		XAxis:  chart.XAxis{Name: cfg.XLabel},
		YAxis:  chart.YAxis{Name: cfg.YLabel},
		Series: series,
	}
	if len(order) > 1 || (len(order) == 1 && order[0] != "") {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for chart", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create chart file", err)
	}
	defer f.Close()

	if err := graph.Render(chart.PNG, f); err != nil {
		return errors.NewRenderError("failed to render scatter chart", err)
	}
	return nil
}
