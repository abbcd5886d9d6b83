package cost

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// defined returns the non-NaN entries of xs.
func defined(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}

// NaNMean is the mean over defined entries, or NaN when there are none.
func NaNMean(xs []float64) float64 {
	d := defined(xs)
	if len(d) == 0 {
		return math.NaN()
	}
	return stat.Mean(d, nil)
}

// NaNSum is the sum over defined entries, or NaN when there are none.
func NaNSum(xs []float64) float64 {
	d := defined(xs)
	if len(d) == 0 {
		return math.NaN()
	}
	return floats.Sum(d)
}

// absDiff returns |a[i] - b[i]| elementwise; NaN propagates.
func absDiff(a, b []float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	floats.SubTo(out, a[:n], b[:n])
	for i, v := range out {
		out[i] = math.Abs(v)
	}
	return out
}
