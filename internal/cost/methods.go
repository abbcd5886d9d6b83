package cost

import "math"

// DefaultEpsilon keeps Division finite when a previous angle is tiny.
const DefaultEpsilon = 1e-6

// Params carries the scalars some methods need.
type Params struct {
	// TargetRate is the analysis rate in samples per second. DifferenceMean
	// scales by it so the cost reads as degrees per second.
	TargetRate float64
	// Epsilon is added to the denominator in Division.
	Epsilon float64
}

// Func computes a cost from the previous and current angle vectors.
type Func func(prev, cur []float64, p Params) float64

// Func returns the strategy for m, or nil when m is not valid.
func (m Method) Func() Func {
	switch m {
	case DifferenceMean:
		return differenceMean
	case MeanDifference:
		return meanDifference
	case DifferenceSum:
		return differenceSum
	case Mean:
		return meanCost
	case Division:
		return division
	default:
		return nil
	}
}

func differenceMean(prev, cur []float64, p Params) float64 {
	return NaNMean(absDiff(prev, cur)) * p.TargetRate
}

func meanDifference(prev, cur []float64, _ Params) float64 {
	return math.Abs(NaNMean(prev) - NaNMean(cur))
}

func differenceSum(prev, cur []float64, _ Params) float64 {
	return NaNSum(absDiff(prev, cur))
}

func meanCost(_, cur []float64, _ Params) float64 {
	return NaNMean(cur)
}

func division(prev, cur []float64, p Params) float64 {
	n := min(len(prev), len(cur))
	ratios := make([]float64, n)
	for i := 0; i < n; i++ {
		den := prev[i]
		if den == 0 {
			den = math.NaN()
		}
		ratios[i] = cur[i] / (den + p.Epsilon)
	}
	return NaNSum(ratios)
}
