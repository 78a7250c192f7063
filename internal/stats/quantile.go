// Package stats holds the small statistical estimators the pipeline depends on.
package stats

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// Quantile computes the continuous (type-7, linear interpolation between
// order statistics) quantile of the sample, matching DuckDB's quantile_cont
// and NumPy's default. The input is not modified. p must be in [0, 1] and
// the sample must be non-empty.
//
// For a sorted sample x of size n, the estimate is taken at rank
// h = p*(n-1) and interpolated as x[floor(h)] + (h-floor(h)) * (x[floor(h)+1]
// - x[floor(h)]). A single-element sample returns that element for any p.
func Quantile(sample []float64, p float64) (float64, error) {
	if len(sample) == 0 {
		return 0, eris.New("stats: quantile of empty sample")
	}
	if p < 0 || p > 1 {
		return 0, eris.Errorf("stats: quantile fraction %v out of [0,1]", p)
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1], nil
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}
