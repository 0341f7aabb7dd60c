package describe

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"clinviz/internal/dataset"
)

const clinicCSV = `subject_id,age,gender,phq9,gad7
S001,30,Male,4,3
S002,50,Female,10,8
S003,40,Male,6,5
S004,60,Female,16,12
S005,20,Male,2,NA
S006,70,Female,12,9
`

func loadClinic(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.LoadCSVReader("clinic", strings.NewReader(clinicCSV))
	require.NoError(t, err)
	return table
}

func TestSummarize_Numeric(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	summaries, err := s.Summarize(context.Background(), table, "age")
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	age := summaries[0]
	assert.Equal(t, dataset.KindNumeric, age.Kind)
	assert.Equal(t, 6, age.N)
	assert.Equal(t, 0, age.Missing)
	assert.InDelta(t, 45.0, age.Mean, 1e-9)
	assert.InDelta(t, 45.0, age.Median, 1e-9)
	assert.Equal(t, 20.0, age.Min)
	assert.Equal(t, 70.0, age.Max)
	assert.InDelta(t, 32.5, age.Q1, 1e-9)
	assert.InDelta(t, 57.5, age.Q3, 1e-9)
}

func TestSummarize_MissingCounted(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	summaries, err := s.Summarize(context.Background(), table, "gad7")
	require.NoError(t, err)

	gad7 := summaries[0]
	assert.Equal(t, 5, gad7.N)
	assert.Equal(t, 1, gad7.Missing)
}

func TestSummarize_Categorical(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	summaries, err := s.Summarize(context.Background(), table, "gender")
	require.NoError(t, err)

	gender := summaries[0]
	assert.Equal(t, dataset.KindCategorical, gender.Kind)
	require.Len(t, gender.Levels, 2)
	for _, lc := range gender.Levels {
		assert.Equal(t, 3, lc.Count)
		assert.InDelta(t, 50.0, lc.Percent, 1e-9)
	}
}

func TestSummarize_UnknownColumnsDropped(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	summaries, err := s.Summarize(context.Background(), table, "age", "not_there")
	require.NoError(t, err)
	assert.Len(t, summaries, 1)

	_, err = s.Summarize(context.Background(), table, "not_there")
	assert.Error(t, err)
}

func TestSummarize_UsesLabels(t *testing.T) {
	table := loadClinic(t)
	require.NoError(t, table.Relabel("phq9", "Depression (PHQ-9)"))

	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())
	summaries, err := s.Summarize(context.Background(), table, "phq9")
	require.NoError(t, err)
	assert.Equal(t, "Depression (PHQ-9)", summaries[0].Label)
}

func TestSummarizeBy(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	grouped, err := s.SummarizeBy(context.Background(), table, "gender", "phq9")
	require.NoError(t, err)

	assert.Equal(t, "gender", grouped.GroupColumn)
	require.Len(t, grouped.Groups, 2)

	// levels sorted alphabetically: Female then Male
	female := grouped.Groups[0]
	assert.Equal(t, "Female", female.Level)
	assert.Equal(t, 3, female.Size)
	require.Len(t, female.Columns, 1)
	assert.InDelta(t, (10.0+16.0+12.0)/3.0, female.Columns[0].Mean, 1e-9)

	male := grouped.Groups[1]
	assert.Equal(t, "Male", male.Level)
	assert.InDelta(t, 4.0, male.Columns[0].Mean, 1e-9)
}

func TestSummarizeBy_UnknownGroup(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())

	_, err := s.SummarizeBy(context.Background(), table, "site")
	assert.Error(t, err)
}

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	assert.Equal(t, 1.0, quantile(sorted, 0))
	assert.Equal(t, 4.0, quantile(sorted, 1))
	assert.InDelta(t, 2.5, quantile(sorted, 0.5), 1e-9)
	assert.InDelta(t, 1.75, quantile(sorted, 0.25), 1e-9)
}

func TestWriteCSV(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())
	ctx := context.Background()

	summaries, err := s.Summarize(ctx, table, "age", "gender")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tables", "summary.csv")
	require.NoError(t, s.WriteCSV(ctx, path, summaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Name,Label,Kind,N,Missing")
	assert.Contains(t, content, "age")
	assert.Contains(t, content, "Male:3 (50.0%)")
}

func TestWriteJSON(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())
	ctx := context.Background()

	summaries, err := s.Summarize(ctx, table, "age")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, s.WriteJSON(ctx, path, summaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"format": "column_summary_v1"`)
	assert.Contains(t, string(data), `"name": "age"`)
}

func TestWriteXLSX(t *testing.T) {
	table := loadClinic(t)
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())
	ctx := context.Background()

	summaries, err := s.Summarize(ctx, table, "age", "phq9")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, s.WriteXLSX(ctx, path, summaries))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3) // header + two columns
	assert.Equal(t, "Name", rows[0][0])
	assert.Equal(t, "age", rows[1][0])
}

func TestWriteHTML(t *testing.T) {
	table := loadClinic(t)
	require.NoError(t, table.Relabel("phq9", "Depression (PHQ-9)"))
	s := NewSummarizer(slog.Default(), DefaultSummarizerConfig())
	ctx := context.Background()

	summaries, err := s.Summarize(ctx, table, "phq9", "gender")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "summary.html")
	require.NoError(t, s.WriteHTML(ctx, path, summaries))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "<table")
	assert.Contains(t, content, "Depression (PHQ-9)")

	fragment, err := s.HTMLFragment(summaries)
	require.NoError(t, err)
	assert.Contains(t, string(fragment), "summary-table")
}
