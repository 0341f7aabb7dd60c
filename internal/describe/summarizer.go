package describe

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"clinviz/internal/dataset"
	"clinviz/internal/errors"
)

// Summarizer produces descriptive-statistics tables from a dataset: per-column
// numeric summaries, categorical frequency tables, and optionally the same
// stratified by a grouping column.
type Summarizer struct {
	logger    *slog.Logger
	maxLevels int
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	MaxLevels int // Maximum categorical levels reported per column
}

// ColumnSummary is the descriptive summary of one column.
type ColumnSummary struct {
	Name    string             `json:"name" csv:"Name"`
	Label   string             `json:"label" csv:"Label"`
	Kind    dataset.ColumnKind `json:"kind" csv:"Kind"`
	N       int                `json:"n" csv:"N"`
	Missing int                `json:"missing" csv:"Missing"`

	// Numeric statistics (populated for numeric columns)
	Mean   float64 `json:"mean,omitempty"`
	SD     float64 `json:"sd,omitempty"`
	Median float64 `json:"median,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Q1     float64 `json:"q1,omitempty"`
	Q3     float64 `json:"q3,omitempty"`

	// Categorical frequencies (populated for categorical columns)
	Levels []LevelCount `json:"levels,omitempty"`
}

// LevelCount is one categorical level with its frequency.
type LevelCount struct {
	Level   string  `json:"level"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// GroupedSummary holds summaries stratified by the levels of a grouping
// column, plus the overall (unstratified) summaries.
type GroupedSummary struct {
	GroupColumn string         `json:"group_column"`
	GroupLabel  string         `json:"group_label"`
	Overall     []ColumnSummary `json:"overall"`
	Groups      []GroupSlice    `json:"groups"`
}

// GroupSlice is the summary set for one level of the grouping column.
type GroupSlice struct {
	Level   string          `json:"level"`
	Size    int             `json:"size"`
	Columns []ColumnSummary `json:"columns"`
}

// NewSummarizer creates a summarizer with the given configuration.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxLevels <= 0 {
		config.MaxLevels = 20
	}
	return &Summarizer{
		logger:    logger,
		maxLevels: config.MaxLevels,
	}
}

// DefaultSummarizerConfig returns the standard configuration.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{MaxLevels: 20}
}

// Summarize builds per-column summaries for the named columns, or the whole
// table when no columns are named. Unknown names are dropped, matching the
// existence filtering used for column selection.
func (s *Summarizer) Summarize(ctx context.Context, table *dataset.Table, columns ...string) ([]ColumnSummary, error) {
	if len(columns) == 0 {
		columns = table.Columns()
	}

	s.logger.InfoContext(ctx, "summarizing dataset",
		slog.String("dataset", table.Name()),
		slog.Int("columns", len(columns)))

	summaries := make([]ColumnSummary, 0, len(columns))
	for _, name := range columns {
		if !table.HasColumn(name) {
			continue
		}
		summary, err := s.summarizeColumn(table, name)
		if err != nil {
			return nil, fmt.Errorf("summarize column %s: %w", name, err)
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 0 {
		return nil, errors.NewValidationError("no requested column exists in the dataset")
	}
	return summaries, nil
}

// SummarizeBy stratifies the summaries by the levels of a categorical
// grouping column. The grouping column itself is excluded from the
// per-group summaries.
func (s *Summarizer) SummarizeBy(ctx context.Context, table *dataset.Table, groupCol string, columns ...string) (*GroupedSummary, error) {
	if !table.HasColumn(groupCol) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("grouping column %q", groupCol))
	}

	if len(columns) == 0 {
		for _, name := range table.Columns() {
			if name != groupCol {
				columns = append(columns, name)
			}
		}
	}

	overall, err := s.Summarize(ctx, table, columns...)
	if err != nil {
		return nil, err
	}

	groupValues, err := table.StringColumn(groupCol)
	if err != nil {
		return nil, err
	}

	out := &GroupedSummary{
		GroupColumn: groupCol,
		GroupLabel:  table.Label(groupCol),
		Overall:     overall,
	}

	for _, level := range sortedLevels(table.Levels(groupCol)) {
		slice, err := s.summarizeSlice(table, groupValues, level, columns)
		if err != nil {
			return nil, err
		}
		out.Groups = append(out.Groups, slice)
	}

	s.logger.InfoContext(ctx, "stratified summary complete",
		slog.String("group_column", groupCol),
		slog.Int("levels", len(out.Groups)))

	return out, nil
}

func (s *Summarizer) summarizeColumn(table *dataset.Table, name string) (ColumnSummary, error) {
	summary := ColumnSummary{
		Name:  name,
		Label: table.Label(name),
		Kind:  table.Kind(name),
	}

	switch summary.Kind {
	case dataset.KindNumeric:
		values, err := table.NumericColumn(name)
		if err != nil {
			return summary, err
		}
		s.fillNumeric(&summary, values, nil, "")
	case dataset.KindCategorical:
		s.fillCategorical(table, &summary)
	default:
		// datetime and free-text columns only get presence counts
		records, err := table.StringColumn(name)
		if err != nil {
			return summary, err
		}
		for _, v := range records {
			if v == "" || v == "NaN" {
				summary.Missing++
			} else {
				summary.N++
			}
		}
	}

	return summary, nil
}

// fillNumeric computes the numeric statistics over present values, optionally
// restricted to rows where groupValues matches level.
func (s *Summarizer) fillNumeric(summary *ColumnSummary, values []float64, groupValues []string, level string) {
	present := make([]float64, 0, len(values))
	for i, v := range values {
		if groupValues != nil && groupValues[i] != level {
			continue
		}
		if math.IsNaN(v) {
			summary.Missing++
			continue
		}
		present = append(present, v)
	}

	summary.N = len(present)
	if summary.N == 0 {
		return
	}

	summary.Mean = stat.Mean(present, nil)
	if summary.N > 1 {
		summary.SD = stat.StdDev(present, nil)
	}

	sorted := append([]float64(nil), present...)
	sort.Float64s(sorted)
	summary.Min = sorted[0]
	summary.Max = sorted[len(sorted)-1]
	summary.Median = quantile(sorted, 0.5)
	summary.Q1 = quantile(sorted, 0.25)
	summary.Q3 = quantile(sorted, 0.75)
}

func (s *Summarizer) fillCategorical(table *dataset.Table, summary *ColumnSummary) {
	levels := table.Levels(summary.Name)
	total := 0
	for _, count := range levels {
		total += count
	}
	summary.N = total
	summary.Missing = table.Rows() - total

	counts := make([]LevelCount, 0, len(levels))
	for level, count := range levels {
		pct := 0.0
		if total > 0 {
			pct = float64(count) * 100.0 / float64(total)
		}
		counts = append(counts, LevelCount{Level: level, Count: count, Percent: pct})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count == counts[j].Count {
			return counts[i].Level < counts[j].Level
		}
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > s.maxLevels {
		counts = counts[:s.maxLevels]
	}
	summary.Levels = counts
}

func (s *Summarizer) summarizeSlice(table *dataset.Table, groupValues []string, level string, columns []string) (GroupSlice, error) {
	slice := GroupSlice{Level: level}
	for _, v := range groupValues {
		if v == level {
			slice.Size++
		}
	}

	for _, name := range columns {
		if !table.HasColumn(name) || table.Kind(name) != dataset.KindNumeric {
			continue
		}
		values, err := table.NumericColumn(name)
		if err != nil {
			return slice, err
		}
		summary := ColumnSummary{
			Name:  name,
			Label: table.Label(name),
			Kind:  dataset.KindNumeric,
		}
		s.fillNumeric(&summary, values, groupValues, level)
		slice.Columns = append(slice.Columns, summary)
	}

	return slice, nil
}

// quantile computes q over a sorted slice with linear interpolation.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

func sortedLevels(levels map[string]int) []string {
	out := make([]string, 0, len(levels))
	for level := range levels {
		out = append(out, level)
	}
	sort.Strings(out)
	return out
}
