package cost

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultTailFraction is the share of lowest and highest costs averaged to
// form the clip bounds in ClipNormalise.
const DefaultTailFraction = 0.1

// ClipNormalise bounds a cost series to [lo, hi], where lo is the mean of the
// lowest tail fraction and hi the mean of the highest, then min-max scales
// it into [0, 1]. Short series use at least one value per tail. A flat
// series maps to all zeros. The input is not modified.
func ClipNormalise(costs []float64, tail float64) []float64 {
	out := make([]float64, len(costs))
	if len(costs) == 0 {
		return out
	}
	if tail <= 0 || tail >= 0.5 {
		tail = DefaultTailFraction
	}

	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)

	k := max(1, int(float64(len(sorted))*tail))
	lo := stat.Mean(sorted[:k], nil)
	hi := stat.Mean(sorted[len(sorted)-k:], nil)
	span := hi - lo

	for i, c := range costs {
		if span <= 0 || math.IsNaN(span) {
			out[i] = 0
			continue
		}
		out[i] = (math.Max(lo, math.Min(hi, c)) - lo) / span
	}
	return out
}
