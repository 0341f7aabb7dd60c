package correlation

import (
	"fmt"
	"math"
)

// Pair is one long-form row of the flattened matrix: one (row, column)
// variable pair with its coefficient, p-value, significance marker and a
// hover caption combining all of them.
type Pair struct {
	Row      string  `json:"row"`
	Col      string  `json:"col"`
	RowLabel string  `json:"row_label"`
	ColLabel string  `json:"col_label"`
	R        float64 `json:"r"`
	P        float64 `json:"p"`
	N        int     `json:"n"`
	Stars    string  `json:"stars"`
	NA       bool    `json:"na,omitempty"`
	Hover    string  `json:"hover"`
}

// Flatten reduces the symmetric matrix to long form: exactly one triangular
// half, row-major, the diagonal kept only when opts.IncludeDiagonal. No pair
// appears twice. Without the diagonal the result has n(n-1)/2 rows, with it
// n(n+1)/2.
func Flatten(m *Matrix, opts Options) []Pair {
	n := m.Dim()
	capacity := n * (n - 1) / 2
	if opts.IncludeDiagonal {
		capacity += n
	}

	pairs := make([]Pair, 0, capacity)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !inTriangle(i, j, opts) {
				continue
			}
			pairs = append(pairs, makePair(m, i, j))
		}
	}
	return pairs
}

func inTriangle(i, j int, opts Options) bool {
	if i == j {
		return opts.IncludeDiagonal
	}
	if opts.Triangle == Upper {
		return j > i
	}
	return j < i
}

func makePair(m *Matrix, i, j int) Pair {
	p := Pair{
		Row:      m.Columns[i],
		Col:      m.Columns[j],
		RowLabel: m.Labels[i],
		ColLabel: m.Labels[j],
		R:        m.R[i][j],
		P:        m.P[i][j],
		N:        m.N[i][j],
	}
	p.NA = math.IsNaN(p.P)
	p.Stars = StarsFor(p.P)
	p.Hover = hoverText(p)
	return p
}

// hoverText builds the human-readable caption shown on widget hover.
func hoverText(p Pair) string {
	pv := "p = n/a"
	if !math.IsNaN(p.P) {
		pv = fmt.Sprintf("p = %.3g", p.P)
	}
	s := ""
	if p.Stars != "" && p.Stars != NAMarker {
		s = " " + p.Stars
	}
	return fmt.Sprintf("%s ~ %s: r = %.2f%s (%s)", p.RowLabel, p.ColLabel, p.R, s, pv)
}
