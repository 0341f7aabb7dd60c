package correlation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinviz/internal/dataset"
)

func tableFromColumns(t *testing.T, cols map[string][]string, order ...string) *dataset.Table {
	t.Helper()

	rows := len(cols[order[0]])
	records := [][]string{order}
	for i := 0; i < rows; i++ {
		row := make([]string, len(order))
		for j, name := range order {
			row[j] = cols[name][i]
		}
		records = append(records, row)
	}

	table, err := dataset.LoadRecords("test", records)
	require.NoError(t, err)
	return table
}

func seq(n int, f func(i int) float64) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = fmt.Sprintf("%g", f(i))
	}
	return out
}

func TestCompute_PerfectCorrelation(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"x":    seq(10, func(i int) float64 { return float64(i + 1) }),
		"y":    seq(10, func(i int) float64 { return 2 * float64(i+1) }),
		"negx": seq(10, func(i int) float64 { return -float64(i + 1) }),
	}, "x", "y", "negx")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)

	r, p, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12)
	assert.Equal(t, 0.0, p, "|r| = 1 should give p = 0")

	r, _, err = m.At("x", "negx")
	require.NoError(t, err)
	assert.InDelta(t, -1.0, r, 1e-12)
}

func TestCompute_KnownCoefficient(t *testing.T) {
	// y is a fixed permutation of x; the Pearson coefficient works out to
	// exactly 19/21.
	table := tableFromColumns(t, map[string][]string{
		"x": {"1", "2", "3", "4", "5", "6", "7", "8"},
		"y": {"2", "1", "4", "3", "6", "5", "8", "7"},
	}, "x", "y")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)

	r, p, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 19.0/21.0, r, 1e-9)
	assert.Greater(t, p, 0.0)
	assert.Less(t, p, 0.01)
}

func TestCompute_DiagonalIsOne(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"a": seq(6, func(i int) float64 { return float64(i * i) }),
		"b": seq(6, func(i int) float64 { return float64(10 - i) }),
	}, "a", "b")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)

	for i := 0; i < m.Dim(); i++ {
		assert.Equal(t, 1.0, m.R[i][i])
		assert.True(t, math.IsNaN(m.P[i][i]), "self-correlation p must be undefined")
	}
}

func TestCompute_SentinelSubstitution(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"a": seq(6, func(i int) float64 { return float64(i) }),
		"b": seq(6, func(i int) float64 { return float64(2 * i) }),
	}, "a", "b")

	opts := DefaultOptions()
	opts.SentinelSubstitution = true

	m, err := Compute(context.Background(), table, opts)
	require.NoError(t, err)

	// Undefined p-values on the diagonal are replaced with the sentinel, so
	// thresholding never sees a missing value and the diagonal registers as
	// maximally significant.
	assert.Equal(t, SentinelP, m.P[0][0])
	assert.Equal(t, "***", StarsFor(m.P[0][0]))
}

func TestCompute_PairwiseComplete(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"x": {"1", "2", "3", "NA", "5", "6", "7", "8"},
		"y": {"2", "4", "6", "8", "NA", "12", "14", "16"},
	}, "x", "y")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)

	r, _, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r, 1e-12)
	// two rows lost: one to each column's missing value
	assert.Equal(t, 6, m.N[0][1])
}

func TestCompute_ConstantColumnUndefined(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"x": seq(8, func(i int) float64 { return float64(i) }),
		"c": {"5", "5", "5", "5", "5", "5", "5", "5"},
	}, "x", "c")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)

	r, p, err := m.At("x", "c")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(r))
	assert.True(t, math.IsNaN(p))
}

func TestCompute_TooFewColumns(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"only": seq(5, func(i int) float64 { return float64(i) }),
	}, "only")

	_, err := Compute(context.Background(), table, DefaultOptions())
	assert.Error(t, err)
}

func TestCompute_Spearman(t *testing.T) {
	// Monotone but nonlinear: Spearman sees a perfect relationship where
	// Pearson does not.
	table := tableFromColumns(t, map[string][]string{
		"x": seq(9, func(i int) float64 { return float64(i + 1) }),
		"y": seq(9, func(i int) float64 { return float64((i + 1) * (i + 1) * (i + 1)) }),
	}, "x", "y")

	opts := DefaultOptions()
	opts.Method = Spearman
	m, err := Compute(context.Background(), table, opts)
	require.NoError(t, err)

	rho, p, err := m.At("x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, rho, 1e-12)
	assert.Equal(t, 0.0, p)

	pearson, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)
	r, _, err := pearson.At("x", "y")
	require.NoError(t, err)
	assert.Less(t, r, 1.0)
}

func TestRanks_TiesAveraged(t *testing.T) {
	got := ranks([]float64{10, 20, 20, 30})
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, got)

	got = ranks([]float64{5, 5, 5})
	assert.Equal(t, []float64{2, 2, 2}, got)
}

func TestPValue(t *testing.T) {
	assert.Equal(t, 1.0, pValue(0, 30), "r = 0 is exactly the null")
	assert.Equal(t, 0.0, pValue(1, 30))
	assert.Equal(t, 0.0, pValue(-1, 30))
	assert.True(t, math.IsNaN(pValue(0.5, 2)), "fewer than 3 pairs is undefined")

	// p shrinks as n grows for the same r
	assert.Greater(t, pValue(0.5, 10), pValue(0.5, 100))
}

func TestCompute_LabelsCarried(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"phq9": seq(6, func(i int) float64 { return float64(i) }),
		"gad7": seq(6, func(i int) float64 { return float64(i + 2) }),
	}, "phq9", "gad7")
	require.NoError(t, table.Relabel("phq9", "Depression (PHQ-9)"))

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"Depression (PHQ-9)", "gad7"}, m.Labels)
}

func TestCompute_SkipsNonNumeric(t *testing.T) {
	table := tableFromColumns(t, map[string][]string{
		"x":     seq(6, func(i int) float64 { return float64(i) }),
		"y":     seq(6, func(i int) float64 { return float64(i * 2) }),
		"group": {"a", "b", "a", "b", "a", "b"},
	}, "x", "y", "group")

	m, err := Compute(context.Background(), table, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, m.Columns)
	assert.False(t, strings.Contains(strings.Join(m.Columns, ","), "group"))
}
