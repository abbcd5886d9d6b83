// Package features derives the angle feature vector from an augmented joint
// set.
package features

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/fallsense/internal/keypoints"
)

// DefaultWeights returns n unit weights.
func DefaultWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// Angles computes one angle (degrees) per schema angle pair over an augmented
// joint set and scales it by the matching weight. An angle is NaN when a
// referenced point is undefined or a vector has zero length. A weights slice
// shorter than the angle count leaves the remaining angles unscaled.
//
// aug must have been produced by keypoints.CollectData for the same schema.
func Angles(aug keypoints.Detection, s keypoints.Schema, weights []float64) []float64 {
	out := make([]float64, len(s.AnglePairs))
	if aug.Len() < s.AugmentedLen() {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	vecs := make([][]float64, len(s.Vectors))
	for i, v := range s.Vectors {
		dx, dy, ok := aug.Points[v[0]].Sub(aug.Points[v[1]])
		if !ok {
			continue
		}
		vecs[i] = []float64{dx, dy}
	}

	for i, pair := range s.AnglePairs {
		a := angleBetween(vecs[pair[0]], vecs[pair[1]])
		if i < len(weights) {
			a *= weights[i]
		}
		out[i] = a
	}
	return out
}

// angleBetween returns the angle between a and b in degrees, or NaN when
// either vector is missing or has zero norm.
func angleBetween(a, b []float64) float64 {
	if a == nil || b == nil {
		return math.NaN()
	}
	norm := floats.Norm(a, 2) * floats.Norm(b, 2)
	if norm == 0 || math.IsNaN(norm) {
		return math.NaN()
	}
	cos := floats.Dot(a, b) / norm
	// Rounding can push |cos| a hair past 1 for (anti)parallel vectors.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// CountUndefined returns how many entries of angles are NaN.
func CountUndefined(angles []float64) int {
	n := 0
	for _, a := range angles {
		if math.IsNaN(a) {
			n++
		}
	}
	return n
}

// Degenerate reports whether angles has at least limit undefined entries.
func Degenerate(angles []float64, limit int) bool {
	return CountUndefined(angles) >= limit
}
