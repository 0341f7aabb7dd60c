package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinviz/internal/config"
	"clinviz/internal/correlation"
	"clinviz/internal/dataset"
)

const reportCSV = `subject_id,age,gender,phq9,eq5d_index,gose
001,34,Female,3,0.88,7
002,58,Male,9,0.61,5
003,45,Female,15,0.42,4
004,29,Male,2,0.95,8
005,61,Female,11,0.55,5
006,50,Male,7,0.70,6
007,38,Female,5,0.81,7
008,44,Male,13,0.48,4
`

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	base := t.TempDir()
	site := filepath.Join(base, "site")
	return config.Paths{
		BaseDir:   base,
		DataDir:   filepath.Join(base, "data"),
		SiteDir:   site,
		WidgetDir: filepath.Join(site, "widgets"),
		ImageDir:  filepath.Join(site, "img"),
		TablesDir: filepath.Join(site, "tables"),
		LogsDir:   filepath.Join(base, "logs"),
	}
}

func testTable(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.LoadCSVReader("clinic", strings.NewReader(reportCSV))
	require.NoError(t, err)
	require.NoError(t, table.Relabel("phq9", "PHQ-9"))
	require.NoError(t, table.Relabel("eq5d_index", "EQ-5D index"))
	return table
}

func testReportConfig() config.ReportConfig {
	return config.ReportConfig{
		Title:         "Clinic Survey Report",
		HeatmapWidth:  600,
		HeatmapHeight: 600,
		MaxParallel:   2,
	}
}

func TestBuild_FullSite(t *testing.T) {
	paths := testPaths(t)
	b := NewBuilder(slog.New(slog.NewTextHandler(os.Stderr, nil)), testReportConfig(), paths)

	meta, err := b.Build(context.Background(), Spec{
		Table:              testTable(t),
		SummaryColumns:     []string{"age", "gender", "phq9", "eq5d_index", "gose"},
		GroupColumn:        "gender",
		CorrelationColumns: []string{"phq9", "eq5d_index", "gose"},
		CorrOptions:        correlation.DefaultOptions(),
		Scatters: []ScatterSpec{
			{Name: "phq9_vs_eq5d", X: "phq9", Y: "eq5d_index", Series: "gender", Hover: "subject_id"},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "clinic", meta.Dataset)
	assert.Equal(t, 8, meta.Rows)
	assert.Equal(t, correlation.Pearson, meta.Method)

	for _, rel := range []string{
		"index.html",
		"report.json",
		"tables/summary.csv",
		"tables/summary.json",
		"tables/summary.xlsx",
		"tables/correlations.csv",
		"img/heatmap.png",
		"img/phq9_vs_eq5d.png",
		"widgets/heatmap.html",
		"widgets/phq9_vs_eq5d.html",
	} {
		_, err := os.Stat(filepath.Join(paths.SiteDir, rel))
		assert.NoError(t, err, rel)
	}

	assert.Contains(t, meta.Files, "tables/summary.csv")
	assert.Contains(t, meta.Files, "img/heatmap.png")
	assert.Contains(t, meta.Files, "widgets/phq9_vs_eq5d.html")
}

func TestBuild_IndexContents(t *testing.T) {
	paths := testPaths(t)
	b := NewBuilder(nil, testReportConfig(), paths)

	_, err := b.Build(context.Background(), Spec{
		Table:              testTable(t),
		CorrelationColumns: []string{"phq9", "eq5d_index", "gose"},
		CorrOptions:        correlation.DefaultOptions(),
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(paths.SiteDir, "index.html"))
	require.NoError(t, err)
	html := string(raw)

	assert.Contains(t, html, "Clinic Survey Report")
	assert.Contains(t, html, `src="widgets/heatmap.html"`)
	assert.Contains(t, html, `href="tables/summary.csv"`)
	assert.Contains(t, html, "PHQ-9")
}

func TestBuild_MetadataRoundTrip(t *testing.T) {
	paths := testPaths(t)
	b := NewBuilder(nil, testReportConfig(), paths)

	meta, err := b.Build(context.Background(), Spec{Table: testTable(t)})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(paths.SiteDir, "report.json"))
	require.NoError(t, err)
	var loaded Metadata
	require.NoError(t, json.Unmarshal(raw, &loaded))

	assert.Equal(t, meta.ID, loaded.ID)
	assert.Equal(t, meta.Rows, loaded.Rows)
	assert.Empty(t, loaded.Method, "no correlation requested")
}

func TestBuild_RequiresTable(t *testing.T) {
	b := NewBuilder(nil, testReportConfig(), testPaths(t))
	_, err := b.Build(context.Background(), Spec{})
	assert.Error(t, err)
}

func TestBuild_ScatterSpecValidation(t *testing.T) {
	b := NewBuilder(nil, testReportConfig(), testPaths(t))
	_, err := b.Build(context.Background(), Spec{
		Table:    testTable(t),
		Scatters: []ScatterSpec{{Name: "broken", X: "phq9"}},
	})
	assert.Error(t, err)
}

func TestStrongestPairs(t *testing.T) {
	m := &correlation.Matrix{
		Columns: []string{"a", "b", "c"},
		Labels:  []string{"a", "b", "c"},
		Method:  correlation.Pearson,
		R: [][]float64{
			{1, 0.2, -0.9},
			{0.2, 1, 0.5},
			{-0.9, 0.5, 1},
		},
		P: [][]float64{
			{0, 0.5, 0.001},
			{0.5, 0, 0.04},
			{0.001, 0.04, 0},
		},
		N: [][]int{{5, 5, 5}, {5, 5, 5}, {5, 5, 5}},
	}
	pairs := correlation.Flatten(m, correlation.DefaultOptions())

	top := strongestPairs(pairs, 2)
	require.Len(t, top, 2)
	assert.InDelta(t, -0.9, top[0].R, 1e-12)
	assert.InDelta(t, 0.5, top[1].R, 1e-12)
}
