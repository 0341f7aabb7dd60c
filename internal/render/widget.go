package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"strings"

	"clinviz/internal/correlation"
	"clinviz/internal/errors"
)

// WidgetConfig controls the self-contained HTML exports. The generated files
// carry their own styling and data so they can be dropped into any static
// site without extra assets.
type WidgetConfig struct {
	Title string
}

type heatmapCell struct {
	Color     string
	TextColor string
	Text      string
	Hover     string
	Blank     bool
}

type heatmapRow struct {
	Label string
	Cells []heatmapCell
}

type heatmapView struct {
	Title   string
	Columns []string
	Rows    []heatmapRow
	Data    template.JS
}

var heatmapTmpl = template.Must(template.New("heatmap").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 16px; }
h1 { font-size: 1.1rem; }
table.heatmap { border-collapse: collapse; }
table.heatmap th, table.heatmap td { padding: 0; }
table.heatmap th { font-weight: normal; font-size: 0.8rem; padding: 4px 6px; }
table.heatmap th.col { writing-mode: vertical-rl; transform: rotate(180deg); text-align: left; }
table.heatmap td { width: 56px; height: 56px; text-align: center; font-size: 0.75rem; cursor: default; }
table.heatmap td.blank { background: transparent; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<table class="heatmap">
<thead>
<tr><th></th>{{range .Columns}}<th class="col">{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr><th class="row">{{.Label}}</th>{{range .Cells}}{{if .Blank}}<td class="blank"></td>{{else}}<td style="background-color: {{.Color}}; color: {{.TextColor}}" title="{{.Hover}}">{{.Text}}</td>{{end}}{{end}}</tr>
{{end}}</tbody>
</table>
<script type="application/json" id="correlation-data">{{.Data}}</script>
</body>
</html>
`))

// HeatmapWidget writes a standalone HTML correlation heatmap. Each rendered
// cell gets its scale color as background and the pair's hover text as a
// title attribute; the full pair list is embedded as JSON for downstream
// tooling.
func HeatmapWidget(path string, m *correlation.Matrix, pairs []correlation.Pair, cfg WidgetConfig) error {
	if cfg.Title == "" {
		cfg.Title = fmt.Sprintf("%s correlation", titleCase(string(m.Method)))
	}

	byCell := make(map[[2]string]correlation.Pair, len(pairs))
	rowSet := map[string]bool{}
	colSet := map[string]bool{}
	for _, p := range pairs {
		byCell[[2]string{p.Row, p.Col}] = p
		rowSet[p.Row] = true
		colSet[p.Col] = true
	}

	view := heatmapView{Title: cfg.Title}
	for j, name := range m.Columns {
		if colSet[name] {
			view.Columns = append(view.Columns, m.Labels[j])
		} else {
			view.Columns = append(view.Columns, "")
		}
	}
	for i, name := range m.Columns {
		if !rowSet[name] {
			continue
		}
		row := heatmapRow{Label: m.Labels[i]}
		for _, colName := range m.Columns {
			p, ok := byCell[[2]string{name, colName}]
			if !ok {
				row.Cells = append(row.Cells, heatmapCell{Blank: true})
				continue
			}
			text := fmt.Sprintf("%.2f%s", p.R, p.Stars)
			if math.IsNaN(p.R) {
				text = correlation.NAMarker
			}
			row.Cells = append(row.Cells, heatmapCell{
				Color:     ScaleHex(p.R),
				TextColor: textColorHex(p.R),
				Text:      text,
				Hover:     p.Hover,
			})
		}
		view.Rows = append(view.Rows, row)
	}

	payload, err := json.Marshal(pairsPayload(pairs))
	if err != nil {
		return errors.NewRenderError("failed to encode correlation data", err)
	}
	view.Data = template.JS(payload)

	return writeWidget(path, heatmapTmpl, view)
}

type pairJSON struct {
	Row   string   `json:"row"`
	Col   string   `json:"col"`
	R     *float64 `json:"r"`
	P     *float64 `json:"p"`
	N     int      `json:"n"`
	Stars string   `json:"stars"`
}

func pairsPayload(pairs []correlation.Pair) []pairJSON {
	out := make([]pairJSON, 0, len(pairs))
	for _, p := range pairs {
		pj := pairJSON{Row: p.RowLabel, Col: p.ColLabel, N: p.N, Stars: p.Stars}
		if !math.IsNaN(p.R) {
			r := p.R
			pj.R = &r
		}
		if !math.IsNaN(p.P) {
			pv := p.P
			pj.P = &pv
		}
		out = append(out, pj)
	}
	return out
}

type scatterView struct {
	Title          string
	XLabel, YLabel string
	Width, Height  int
	Points         []scatterPoint
	XTicks, YTicks []tick
}

type scatterPoint struct {
	CX, CY float64
	R      float64
	Color  string
	Hover  string
}

type tick struct {
	Pos   float64
	Label string
}

var scatterTmpl = template.Must(template.New("scatter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 16px; }
h1 { font-size: 1.1rem; }
svg { background: #ffffff; }
circle { fill-opacity: 0.7; }
text { font-size: 11px; fill: #333333; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{range .XTicks}}<line x1="{{.Pos}}" y1="40" x2="{{.Pos}}" y2="{{$.Height}}" stroke="#eeeeee"/>
<text x="{{.Pos}}" y="{{$.Height}}" text-anchor="middle" dy="-4">{{.Label}}</text>
{{end}}{{range .YTicks}}<line x1="60" y1="{{.Pos}}" x2="{{$.Width}}" y2="{{.Pos}}" stroke="#eeeeee"/>
<text x="56" y="{{.Pos}}" text-anchor="end" dy="4">{{.Label}}</text>
{{end}}{{range .Points}}<circle cx="{{.CX}}" cy="{{.CY}}" r="{{.R}}" fill="{{.Color}}"><title>{{.Hover}}</title></circle>
{{end}}<text x="{{.Width}}" y="14" text-anchor="end">{{.XLabel}}</text>
<text x="12" y="14">{{.YLabel}}</text>
</svg>
</body>
</html>
`))

// ScatterWidget writes a standalone HTML scatter (or bubble) chart as inline
// SVG. Every circle carries a title element so browsers show per-point hover
// text without any script.
func ScatterWidget(path string, points []Point, hover []string, cfg ScatterConfig) error {
	complete := make([]Point, 0, len(points))
	var hovers []string
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		complete = append(complete, p)
		if i < len(hover) {
			hovers = append(hovers, hover[i])
		} else {
			hovers = append(hovers, fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y))
		}
	}
	if len(complete) == 0 {
		return errors.NewValidationError("no complete observations to plot")
	}

	width, height := cfg.Width, cfg.Height
	if width <= 0 {
		width = 720
	}
	if height <= 0 {
		height = 480
	}
	const marginLeft, marginTop, marginRight, marginBottom = 60.0, 40.0, 20.0, 36.0
	plotW := float64(width) - marginLeft - marginRight
	plotH := float64(height) - marginTop - marginBottom

	minX, maxX := complete[0].X, complete[0].X
	minY, maxY := complete[0].Y, complete[0].Y
	var maxSize float64
	for _, p := range complete {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		maxSize = math.Max(maxSize, p.Size)
	}
	if maxX == minX {
		maxX = minX + 1
	}
	if maxY == minY {
		maxY = minY + 1
	}

	seriesColor := map[string]string{}
	view := scatterView{
		Title:  cfg.Title,
		XLabel: cfg.XLabel,
		YLabel: cfg.YLabel,
		Width:  width,
		Height: height,
	}
	for i, p := range complete {
		color, ok := seriesColor[p.Series]
		if !ok {
			c := seriesPalette[len(seriesColor)%len(seriesPalette)]
			color = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
			seriesColor[p.Series] = color
		}
		radius := 4.0
		if maxSize > 0 && p.Size > 0 {
			radius = 3 + 9*(p.Size/maxSize)
		}
		view.Points = append(view.Points, scatterPoint{
			CX:    round1(marginLeft + plotW*(p.X-minX)/(maxX-minX)),
			CY:    round1(marginTop + plotH*(1-(p.Y-minY)/(maxY-minY))),
			R:     round1(radius),
			Color: color,
			Hover: hovers[i],
		})
	}
	for i := 0; i <= 4; i++ {
		fx := float64(i) / 4
		view.XTicks = append(view.XTicks, tick{
			Pos:   round1(marginLeft + plotW*fx),
			Label: formatTick(minX + (maxX-minX)*fx),
		})
		view.YTicks = append(view.YTicks, tick{
			Pos:   round1(marginTop + plotH*(1-fx)),
			Label: formatTick(minY + (maxY-minY)*fx),
		})
	}

	return writeWidget(path, scatterTmpl, view)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func textColorHex(r float64) string {
	c := textColor(Scale(r))
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatTick(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e6 {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.2f", v)
}

func writeWidget(path string, tmpl *template.Template, data any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for widget", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create widget file", err)
	}
	defer f.Close()
	if err := tmpl.Execute(f, data); err != nil {
		return errors.NewRenderError("failed to render widget", err)
	}
	return nil
}
