package dataset

import (
	"strconv"
	"time"

	"github.com/go-gota/gota/series"
)

// ColumnKind classifies a column for summarization and plotting.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
	KindText        ColumnKind = "text"
)

// Categorical columns are distinguished from free text by cardinality: a
// string column with at most this many distinct levels, or where levels
// repeat heavily, is treated as categorical.
const maxCategoricalLevels = 30

// ColumnSpec describes one column of a table.
type ColumnSpec struct {
	Name  string     `json:"name"`
	Label string     `json:"label"`
	Kind  ColumnKind `json:"kind"`
}

// Schema returns the ordered column specs of the table.
func (t *Table) Schema() []ColumnSpec {
	names := t.Columns()
	specs := make([]ColumnSpec, len(names))
	for i, name := range names {
		specs[i] = ColumnSpec{
			Name:  name,
			Label: t.Label(name),
			Kind:  t.Kind(name),
		}
	}
	return specs
}

// Kind infers the column kind. Typed numeric columns are numeric; string
// columns are classified by what their non-empty cells parse as, majority
// winning.
func (t *Table) Kind(name string) ColumnKind {
	col := t.df.Col(name)

	switch col.Type() {
	case series.Float, series.Int:
		return KindNumeric
	case series.Bool:
		return KindCategorical
	}

	var numCnt, dtCnt, total int
	levels := make(map[string]int)
	for _, v := range col.Records() {
		if v == "" || v == "NaN" {
			continue
		}
		total++
		if _, err := strconv.ParseFloat(v, 64); err == nil {
			numCnt++
			continue
		}
		if _, ok := parseTimeMaybe(v); ok {
			dtCnt++
			continue
		}
		levels[v]++
	}

	if total == 0 {
		return KindText
	}
	if numCnt*2 > total {
		return KindNumeric
	}
	if dtCnt*2 > total {
		return KindDatetime
	}
	if len(levels) <= maxCategoricalLevels {
		return KindCategorical
	}
	return KindText
}

// Levels returns the distinct values of a categorical column with counts,
// empty cells excluded.
func (t *Table) Levels(name string) map[string]int {
	levels := make(map[string]int)
	if !t.HasColumn(name) {
		return levels
	}
	for _, v := range t.df.Col(name).Records() {
		if v == "" || v == "NaN" {
			continue
		}
		levels[v]++
	}
	return levels
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339, "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
