package report

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"clinviz/internal/correlation"
	"clinviz/internal/describe"
	"clinviz/internal/errors"
)

// fileList collects site-relative export paths from concurrent build tasks.
type fileList struct {
	mu    sync.Mutex
	paths []string
}

func newFileList() *fileList { return &fileList{} }

func (fl *fileList) add(paths ...string) {
	fl.mu.Lock()
	fl.paths = append(fl.paths, paths...)
	fl.mu.Unlock()
}

func (fl *fileList) sorted() []string {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	out := append([]string(nil), fl.paths...)
	sort.Strings(out)
	return out
}

var pairsCSVHeader = []string{"Row", "Column", "R", "P", "Stars", "N"}

// writePairsCSV exports the flattened correlation pairs, one row per retained
// cell. Undefined coefficients are written as the NA marker.
func writePairsCSV(path string, pairs []correlation.Pair) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create correlation table", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(pairsCSVHeader); err != nil {
		return errors.NewStorageError("failed to write correlation header", err)
	}
	for _, p := range pairs {
		r, pv := correlation.NAMarker, correlation.NAMarker
		if !math.IsNaN(p.R) {
			r = strconv.FormatFloat(p.R, 'f', 4, 64)
		}
		if !math.IsNaN(p.P) {
			pv = strconv.FormatFloat(p.P, 'g', 4, 64)
		}
		row := []string{p.RowLabel, p.ColLabel, r, pv, p.Stars, strconv.Itoa(p.N)}
		if err := w.Write(row); err != nil {
			return errors.NewStorageError("failed to write correlation row", err)
		}
	}
	w.Flush()
	return w.Error()
}

type indexView struct {
	Meta     *Metadata
	Summary  template.HTML
	Grouped  []groupedView
	HasCorr  bool
	TopPairs []correlation.Pair
	Scatters []scatterLink
}

type groupedView struct {
	Level   string
	N       int
	Summary template.HTML
}

type scatterLink struct {
	Name   string
	Widget string
	Image  string
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Meta.Title}}</title>
<style>
body { font-family: "Helvetica Neue", Arial, sans-serif; margin: 24px; max-width: 1100px; }
h1 { font-size: 1.4rem; } h2 { font-size: 1.1rem; margin-top: 1.6em; }
table { border-collapse: collapse; } th, td { border: 1px solid #cccccc; padding: 4px 8px; font-size: 0.85rem; }
iframe { border: 1px solid #cccccc; margin-top: 8px; }
.meta { color: #666666; font-size: 0.8rem; }
</style>
</head>
<body>
<h1>{{.Meta.Title}}</h1>
<p class="meta">Report {{.Meta.ID}} &middot; generated {{.Meta.GeneratedAt.Format "2006-01-02 15:04 MST"}} &middot; dataset {{.Meta.Dataset}} ({{.Meta.Rows}} rows, {{.Meta.Columns}} columns)</p>

<h2>Descriptive statistics</h2>
{{.Summary}}
<p><a href="tables/summary.csv">CSV</a> &middot; <a href="tables/summary.xlsx">XLSX</a> &middot; <a href="tables/summary.json">JSON</a></p>

{{range .Grouped}}<h2>Group: {{.Level}} (n = {{.N}})</h2>
{{.Summary}}
{{end}}
{{if .HasCorr}}<h2>Correlations ({{.Meta.Method}})</h2>
<iframe src="widgets/heatmap.html" width="1000" height="700"></iframe>
<p><a href="img/heatmap.png">PNG</a> &middot; <a href="tables/correlations.csv">pair table</a></p>
{{if .TopPairs}}<h3>Strongest associations</h3>
<table>
<tr><th>Pair</th><th>r</th><th>p</th></tr>
{{range .TopPairs}}<tr><td>{{.RowLabel}} ~ {{.ColLabel}}</td><td>{{printf "%.2f" .R}}{{.Stars}}</td><td>{{printf "%.3g" .P}}</td></tr>
{{end}}</table>
{{end}}{{end}}
{{range .Scatters}}<h2>{{.Name}}</h2>
<iframe src="{{.Widget}}" width="760" height="540"></iframe>
<p><a href="{{.Image}}">PNG</a></p>
{{end}}
</body>
</html>
`))

const topPairCount = 5

func (b *Builder) writeIndex(meta *Metadata, summaries []describe.ColumnSummary,
	grouped *describe.GroupedSummary, matrix *correlation.Matrix,
	pairs []correlation.Pair, scatters []ScatterSpec) error {

	summarizer := describe.NewSummarizer(b.logger, describe.DefaultSummarizerConfig())
	fragment, err := summarizer.HTMLFragment(summaries)
	if err != nil {
		return err
	}

	view := indexView{Meta: meta, Summary: fragment, HasCorr: matrix != nil}

	if grouped != nil {
		for _, slice := range grouped.Groups {
			gf, err := summarizer.HTMLFragment(slice.Columns)
			if err != nil {
				return err
			}
			view.Grouped = append(view.Grouped, groupedView{
				Level:   slice.Level,
				N:       slice.Size,
				Summary: gf,
			})
		}
	}

	if matrix != nil {
		view.TopPairs = strongestPairs(pairs, topPairCount)
	}
	for _, sc := range scatters {
		view.Scatters = append(view.Scatters, scatterLink{
			Name:   fmt.Sprintf("%s vs %s", sc.Y, sc.X),
			Widget: "widgets/" + sc.Name + ".html",
			Image:  "img/" + sc.Name + ".png",
		})
	}

	path := filepath.Join(b.paths.SiteDir, "index.html")
	f, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create report index", err)
	}
	defer f.Close()
	if err := indexTmpl.Execute(f, view); err != nil {
		return errors.NewRenderError("failed to render report index", err)
	}
	return nil
}

// strongestPairs returns the k off-diagonal pairs with the largest |r|,
// skipping undefined coefficients.
func strongestPairs(pairs []correlation.Pair, k int) []correlation.Pair {
	candidates := make([]correlation.Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Row == p.Col || math.IsNaN(p.R) {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return math.Abs(candidates[i].R) > math.Abs(candidates[j].R)
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}
