// Package classify maps a smoothed cost to a fall / no-fall verdict.
package classify

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/fallsense/internal/cost"
)

// Verdict is the outcome for one smoothed sample.
type Verdict int

const (
	NoFall Verdict = iota
	Fall
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	if v == Fall {
		return "fall"
	}
	return "no fall"
}

// MarshalJSON encodes the verdict as its string form.
func (v Verdict) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts "fall" or "no fall".
func (v *Verdict) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "fall":
		*v = Fall
	case "no fall":
		*v = NoFall
	default:
		return fmt.Errorf("unknown verdict %q", s)
	}
	return nil
}

// Label is the overlay text for the verdict.
func (v Verdict) Label() string {
	if v == Fall {
		return "FALL DETECTED!"
	}
	return "No Fall"
}

// Thresholds holds one cutoff per cost method.
type Thresholds map[cost.Method]float64

// DefaultThresholds returns the tuned cutoffs for each method.
func DefaultThresholds() Thresholds {
	return Thresholds{
		cost.DifferenceMean: 58,
		cost.DifferenceSum:  55,
		cost.MeanDifference: 5,
		cost.Mean:           37,
		cost.Division:       8.5,
	}
}

// With returns a copy of t with overrides applied.
func (t Thresholds) With(overrides map[cost.Method]float64) Thresholds {
	out := make(Thresholds, len(t)+len(overrides))
	for m, v := range t {
		out[m] = v
	}
	for m, v := range overrides {
		out[m] = v
	}
	return out
}

// For returns the threshold for m.
func (t Thresholds) For(m cost.Method) (float64, bool) {
	v, ok := t[m]
	return v, ok
}

// Classifier is a stateless threshold lookup bound to one method.
type Classifier struct {
	method    cost.Method
	threshold float64
}

// New binds a classifier to m using the table t.
func New(m cost.Method, t Thresholds) (Classifier, error) {
	th, ok := t.For(m)
	if !ok {
		return Classifier{}, fmt.Errorf("no threshold configured for method %s", m)
	}
	return Classifier{method: m, threshold: th}, nil
}

// Threshold returns the bound cutoff.
func (c Classifier) Threshold() float64 { return c.threshold }

// Method returns the bound method.
func (c Classifier) Method() cost.Method { return c.method }

// Classify returns Fall when smoothed is strictly above the threshold.
func (c Classifier) Classify(smoothed float64) Verdict {
	if smoothed > c.threshold {
		return Fall
	}
	return NoFall
}
