package dataset

import (
	"fmt"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"clinviz/internal/errors"
)

// Table is a rectangular dataset: rows are subjects, columns are named
// variables. It wraps a gota DataFrame and carries display labels separately
// so that relabeling never touches the underlying values.
type Table struct {
	name   string
	df     dataframe.DataFrame
	labels map[string]string
}

// NewTable wraps an existing DataFrame.
func NewTable(name string, df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, errors.NewParsingError("invalid dataframe", df.Err)
	}
	if df.Ncol() == 0 {
		return nil, errors.NewValidationError("dataset has no columns")
	}
	return &Table{
		name:   name,
		df:     df,
		labels: make(map[string]string),
	}, nil
}

// Name returns the dataset name (normally the source file base name).
func (t *Table) Name() string { return t.name }

// Rows returns the number of rows (subjects).
func (t *Table) Rows() int { return t.df.Nrow() }

// Columns returns the column names in table order.
func (t *Table) Columns() []string { return t.df.Names() }

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.df.Names() {
		if c == name {
			return true
		}
	}
	return false
}

// Select returns a new table restricted to the named columns. Names that do
// not exist in the table are dropped rather than rejected, the way the source
// workflow intersects its variable wishlist against the sheet's actual
// columns. Requested order is preserved. Selecting nothing that survives is
// an error.
func (t *Table) Select(names ...string) (*Table, error) {
	var kept []string
	for _, name := range names {
		if t.HasColumn(name) {
			kept = append(kept, name)
		}
	}
	if len(kept) == 0 {
		return nil, errors.NewValidationError(
			fmt.Sprintf("none of the requested columns exist in dataset %q", t.name))
	}

	sub := t.df.Select(kept)
	if sub.Err != nil {
		return nil, errors.NewParsingError("column selection failed", sub.Err)
	}

	out := &Table{name: t.name, df: sub, labels: make(map[string]string)}
	for _, name := range kept {
		if label, ok := t.labels[name]; ok {
			out.labels[name] = label
		}
	}
	return out, nil
}

// Relabel assigns a human-readable display label to a column. Only the label
// changes; the column name and its values are untouched.
func (t *Table) Relabel(name, label string) error {
	if !t.HasColumn(name) {
		return errors.NewNotFoundError(fmt.Sprintf("column %q", name))
	}
	t.labels[name] = label
	return nil
}

// Label returns the display label for a column, falling back to the column
// name when none was assigned.
func (t *Table) Label(name string) string {
	if label, ok := t.labels[name]; ok && label != "" {
		return label
	}
	return name
}

// Labels returns display labels for the given columns, in order.
func (t *Table) Labels(names ...string) []string {
	if len(names) == 0 {
		names = t.Columns()
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = t.Label(name)
	}
	return out
}

// Recode rewrites the levels of a categorical column in place, e.g. mapping
// coded values ("1", "2") to descriptive ones ("Male", "Female"). Values
// absent from the mapping pass through unchanged.
func (t *Table) Recode(name string, mapping map[string]string) error {
	if !t.HasColumn(name) {
		return errors.NewNotFoundError(fmt.Sprintf("column %q", name))
	}

	col := t.df.Col(name)
	records := col.Records()
	for i, v := range records {
		if replacement, ok := mapping[strings.TrimSpace(v)]; ok {
			records[i] = replacement
		}
	}

	mutated := t.df.Mutate(series.New(records, series.String, name))
	if mutated.Err != nil {
		return errors.NewParsingError(fmt.Sprintf("recode of column %q failed", name), mutated.Err)
	}
	t.df = mutated
	return nil
}

// NumericColumn returns the column as float64 values, NaN for missing or
// unparseable cells.
func (t *Table) NumericColumn(name string) ([]float64, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("column %q", name))
	}
	return t.df.Col(name).Float(), nil
}

// StringColumn returns the raw cell values of a column.
func (t *Table) StringColumn(name string) ([]string, error) {
	if !t.HasColumn(name) {
		return nil, errors.NewNotFoundError(fmt.Sprintf("column %q", name))
	}
	return t.df.Col(name).Records(), nil
}

// NumericColumns returns the subset of the given columns (all columns when
// none given) that are numeric, preserving order.
func (t *Table) NumericColumns(names ...string) []string {
	if len(names) == 0 {
		names = t.Columns()
	}
	var out []string
	for _, name := range names {
		if t.HasColumn(name) && t.Kind(name) == KindNumeric {
			out = append(out, name)
		}
	}
	return out
}
