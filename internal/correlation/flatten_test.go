package correlation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarsFor(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		want string
	}{
		{"well below strictest", 0.0005, "***"},
		{"boundary 0.001 inclusive", 0.001, "***"},
		{"between 0.001 and 0.01", 0.002, "**"},
		{"boundary 0.01 inclusive", 0.01, "**"},
		{"between 0.01 and 0.05", 0.04, "*"},
		{"boundary 0.05 inclusive", 0.05, "*"},
		{"just above 0.05", 0.051, ""},
		{"clearly not significant", 0.6, ""},
		{"undefined", math.NaN(), NAMarker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StarsFor(tt.p))
		})
	}
}

// matrixABC is the worked three-variable example: r(A,B)=0.80 (p=0.002),
// r(A,C)=0.10 (p=0.60), r(B,C)=-0.50 (p=0.04).
func matrixABC() *Matrix {
	nan := math.NaN()
	return &Matrix{
		Columns: []string{"A", "B", "C"},
		Labels:  []string{"A", "B", "C"},
		Method:  Pearson,
		R: [][]float64{
			{1, 0.80, 0.10},
			{0.80, 1, -0.50},
			{0.10, -0.50, 1},
		},
		P: [][]float64{
			{nan, 0.002, 0.60},
			{0.002, nan, 0.04},
			{0.60, 0.04, nan},
		},
		N: [][]int{
			{20, 20, 20},
			{20, 20, 20},
			{20, 20, 20},
		},
	}
}

func TestFlatten_ThreeVariableExample(t *testing.T) {
	pairs := Flatten(matrixABC(), DefaultOptions())

	require.Len(t, pairs, 3, "three variables give exactly n(n-1)/2 = 3 rows")

	byKey := map[string]Pair{}
	for _, p := range pairs {
		byKey[p.Row+"/"+p.Col] = p
		alt := p.Col + "/" + p.Row
		_, dup := byKey[alt]
		assert.False(t, dup, "no pair may appear twice")
	}

	ab := byKey["B/A"]
	assert.Equal(t, 0.80, ab.R)
	assert.Equal(t, "**", ab.Stars)

	ac := byKey["C/A"]
	assert.Equal(t, 0.10, ac.R)
	assert.Equal(t, "", ac.Stars)

	bc := byKey["C/B"]
	assert.Equal(t, -0.50, bc.R)
	assert.Equal(t, "*", bc.Stars)
}

func TestFlatten_TriangleCounts(t *testing.T) {
	m := matrixABC()

	opts := DefaultOptions()
	assert.Len(t, Flatten(m, opts), 3)

	opts.IncludeDiagonal = true
	assert.Len(t, Flatten(m, opts), 6, "with diagonal: n(n+1)/2 pairs")

	opts.IncludeDiagonal = false
	opts.Triangle = Upper
	upper := Flatten(m, opts)
	assert.Len(t, upper, 3)
	for _, p := range upper {
		assert.NotEqual(t, p.Row, p.Col)
	}
}

func TestFlatten_DiagonalMarkers(t *testing.T) {
	m := matrixABC()
	opts := DefaultOptions()
	opts.IncludeDiagonal = true

	pairs := Flatten(m, opts)
	for _, p := range pairs {
		if p.Row != p.Col {
			continue
		}
		assert.Equal(t, 1.0, p.R, "self pair coefficient must be exactly 1")
		assert.True(t, p.NA)
		assert.Equal(t, NAMarker, p.Stars, "undefined p carries the n/a marker")
	}
}

func TestFlatten_DiagonalUnderSentinel(t *testing.T) {
	m := matrixABC()
	for i := range m.P {
		for j := range m.P[i] {
			if math.IsNaN(m.P[i][j]) {
				m.P[i][j] = SentinelP
			}
		}
	}

	opts := DefaultOptions()
	opts.IncludeDiagonal = true
	pairs := Flatten(m, opts)

	for _, p := range pairs {
		if p.Row != p.Col {
			continue
		}
		assert.Equal(t, 1.0, p.R)
		assert.Equal(t, "***", p.Stars,
			"sentinel substitution forces self pairs to three stars")
	}
}

func TestHoverText(t *testing.T) {
	p := Pair{RowLabel: "Depression (PHQ-9)", ColLabel: "Age", R: -0.42, P: 0.013}
	p.Stars = StarsFor(p.P)
	got := hoverText(p)

	assert.Contains(t, got, "Depression (PHQ-9) ~ Age")
	assert.Contains(t, got, "r = -0.42")
	assert.Contains(t, got, "*")
	assert.Contains(t, got, "p = 0.013")

	na := Pair{RowLabel: "A", ColLabel: "A", R: 1, P: math.NaN()}
	na.Stars = StarsFor(na.P)
	assert.Contains(t, hoverText(na), "p = n/a")
}
