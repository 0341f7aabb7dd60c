package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"clinviz/internal/dataset"
	"clinviz/internal/errors"
)

// Method selects the correlation coefficient.
type Method string

const (
	// Pearson is the linear product-moment coefficient.
	Pearson Method = "pearson"
	// Spearman is the rank-based coefficient: Pearson over average-tie ranks.
	Spearman Method = "spearman"
)

// Triangle selects which half of the symmetric matrix survives flattening.
type Triangle string

const (
	Upper Triangle = "upper"
	Lower Triangle = "lower"
)

// SentinelP is the value substituted for undefined p-values when the legacy
// sentinel rule is enabled. It forces the diagonal and degenerate pairs to
// register as maximally significant.
const SentinelP = 1e-7

// Options configures matrix computation and flattening.
type Options struct {
	Method          Method
	Triangle        Triangle
	IncludeDiagonal bool
	// SentinelSubstitution replaces undefined p-values with SentinelP
	// instead of carrying them as not-applicable. Off by default: reporting
	// a self-correlation as highly significant is misleading, so undefined
	// p-values surface as a distinct "n/a" marker unless the caller
	// explicitly wants the diagonal force-highlighted.
	SentinelSubstitution bool
	// MinPairs is the minimum number of complete observation pairs required
	// for a defined coefficient. Below it both r and p are undefined.
	MinPairs int
}

// DefaultOptions returns the standard configuration: Pearson, lower triangle,
// diagonal excluded, no sentinel substitution.
func DefaultOptions() Options {
	return Options{
		Method:   Pearson,
		Triangle: Lower,
		MinPairs: 3,
	}
}

// Matrix holds pairwise correlation results over a set of numeric variables.
// R and P are n×n and symmetric; N counts the complete observation pairs each
// cell was computed from.
type Matrix struct {
	Columns []string    `json:"columns"`
	Labels  []string    `json:"labels"`
	Method  Method      `json:"method"`
	R       [][]float64 `json:"r"`
	P       [][]float64 `json:"p"`
	N       [][]int     `json:"n"`
}

// Dim returns the number of variables.
func (m *Matrix) Dim() int { return len(m.Columns) }

// Compute builds the correlation matrix for the named columns of the table
// (all numeric columns when none are named). Non-numeric and unknown names
// are dropped the same way column selection drops them elsewhere. Each pair
// is computed over its complete observations only.
func Compute(ctx context.Context, table *dataset.Table, opts Options, columns ...string) (*Matrix, error) {
	logger := slog.Default()

	cols := table.NumericColumns(columns...)
	if len(cols) < 2 {
		return nil, errors.NewValidationError(
			"correlation needs at least two numeric columns")
	}

	if opts.Method == "" {
		opts.Method = Pearson
	}
	if opts.MinPairs < 3 {
		opts.MinPairs = 3
	}

	logger.InfoContext(ctx, "computing correlation matrix",
		slog.String("method", string(opts.Method)),
		slog.Int("columns", len(cols)))

	data := make([][]float64, len(cols))
	for i, name := range cols {
		values, err := table.NumericColumn(name)
		if err != nil {
			return nil, err
		}
		data[i] = values
	}

	n := len(cols)
	m := &Matrix{
		Columns: cols,
		Labels:  table.Labels(cols...),
		Method:  opts.Method,
		R:       newSquare(n),
		P:       newSquare(n),
		N:       newSquareInt(n),
	}

	for i := 0; i < n; i++ {
		m.R[i][i] = 1
		m.P[i][i] = math.NaN() // self-correlation has no defined p-value
		m.N[i][i] = completeCount(data[i])

		for j := i + 1; j < n; j++ {
			r, p, pairs := correlate(data[i], data[j], opts)
			m.R[i][j], m.R[j][i] = r, r
			m.P[i][j], m.P[j][i] = p, p
			m.N[i][j], m.N[j][i] = pairs, pairs
		}
	}

	if opts.SentinelSubstitution {
		for i := range m.P {
			for j := range m.P[i] {
				if math.IsNaN(m.P[i][j]) {
					m.P[i][j] = SentinelP
				}
			}
		}
	}

	return m, nil
}

// correlate computes one pairwise coefficient over complete observations.
func correlate(x, y []float64, opts Options) (r, p float64, pairs int) {
	xs, ys := completePairs(x, y)
	pairs = len(xs)
	if pairs < opts.MinPairs {
		return math.NaN(), math.NaN(), pairs
	}

	if opts.Method == Spearman {
		xs = ranks(xs)
		ys = ranks(ys)
	}

	r = stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		// degenerate variance: constant column
		return math.NaN(), math.NaN(), pairs
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}

	p = pValue(r, pairs)
	return r, p, pairs
}

// pValue is the two-sided p-value of r under the t distribution with n-2
// degrees of freedom.
func pValue(r float64, n int) float64 {
	if n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// completePairs filters to indexes where both values are present.
func completePairs(x, y []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}

func completeCount(x []float64) int {
	count := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			count++
		}
	}
	return count
}

// ranks assigns 1-based ranks with ties receiving their average rank.
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		// average rank across the tie run [i, j]
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

func newSquare(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}

func newSquareInt(n int) [][]int {
	out := make([][]int, n)
	for i := range out {
		out[i] = make([]int, n)
	}
	return out
}

// At returns (r, p) for a pair of column names.
func (m *Matrix) At(row, col string) (float64, float64, error) {
	ri, ci := -1, -1
	for i, name := range m.Columns {
		if name == row {
			ri = i
		}
		if name == col {
			ci = i
		}
	}
	if ri < 0 || ci < 0 {
		return 0, 0, errors.NewNotFoundError(fmt.Sprintf("pair (%s, %s)", row, col))
	}
	return m.R[ri][ci], m.P[ri][ci], nil
}
