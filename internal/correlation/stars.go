package correlation

import "math"

// Significance thresholds, strictest first. Boundaries are inclusive toward
// significance: p = 0.01 clears the 0.01 threshold and earns two stars.
var thresholds = []struct {
	p     float64
	stars string
}{
	{0.001, "***"},
	{0.01, "**"},
	{0.05, "*"},
}

// NAMarker is the marker carried by pairs whose p-value is undefined (self
// pairs and degenerate pairs) when sentinel substitution is off.
const NAMarker = "n/a"

// StarsFor maps a p-value to its significance marker. Undefined p-values get
// the distinct not-applicable marker rather than any star count.
func StarsFor(p float64) string {
	if math.IsNaN(p) {
		return NAMarker
	}
	for _, t := range thresholds {
		if p <= t.p {
			return t.stars
		}
	}
	return ""
}
