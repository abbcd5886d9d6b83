package stream

import (
	"fmt"
	"math"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/features"
	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/smoothing"
	"github.com/banshee-data/fallsense/internal/timeutil"
)

// Options configures a Driver. Use DefaultOptions and override fields.
type Options struct {
	Method cost.Method
	Mode   Mode

	// TargetRate is the analysis rate in samples per second.
	TargetRate float64

	// WindowSeconds and WarmupSamples size the smoothing window. A zero
	// WarmupSamples waits for a full window.
	WindowSeconds float64
	WarmupSamples int
	WindowWeights []float64

	AngleWeights []float64
	Thresholds   classify.Thresholds

	NominalBatchRate float64
	MinFileRate      float64
	DefaultLiveRate  float64

	// DegenerateLimit is the count of undefined angles at which a frame is
	// dropped.
	DegenerateLimit int
	Epsilon         float64

	Schema keypoints.Schema

	// RunID labels emitted records. A random UUID is used when empty.
	RunID string

	// Pace sleeps between frames of a recorded source so it replays at its
	// own frame rate. Live sources are never paced.
	Pace bool

	Clock timeutil.Clock
}

// DefaultOptions returns the tuned defaults: DifferenceMean at 6 Hz with a
// one second window over the COCO-17 schema.
func DefaultOptions() Options {
	s := keypoints.COCO17()
	return Options{
		Method:           cost.DifferenceMean,
		Mode:             RealTime,
		TargetRate:       6,
		WindowSeconds:    1,
		AngleWeights:     features.DefaultWeights(s.NumAngles()),
		Thresholds:       classify.DefaultThresholds(),
		NominalBatchRate: 30,
		MinFileRate:      5,
		DefaultLiveRate:  30,
		DegenerateLimit:  6,
		Epsilon:          cost.DefaultEpsilon,
		Schema:           s,
		Clock:            timeutil.RealClock{},
	}
}

// WindowCapacity returns the smoothing window length in samples.
func (o Options) WindowCapacity() int {
	return smoothing.CapacityForRate(o.TargetRate, o.WindowSeconds)
}

func (o Options) validate() error {
	if !o.Method.Valid() {
		return fmt.Errorf("%w: %d", cost.ErrInvalidMethod, int(o.Method))
	}
	if o.TargetRate <= 0 || math.IsNaN(o.TargetRate) {
		return fmt.Errorf("target rate must be positive, got %v", o.TargetRate)
	}
	if err := o.Schema.Validate(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	if o.AngleWeights != nil && len(o.AngleWeights) != o.Schema.NumAngles() {
		return fmt.Errorf("angle weights: got %d entries, schema has %d angles", len(o.AngleWeights), o.Schema.NumAngles())
	}
	if o.DegenerateLimit < 1 {
		return fmt.Errorf("degenerate limit must be at least 1, got %d", o.DegenerateLimit)
	}
	return nil
}

// sourceRate applies the mode's rate policy to a reported rate.
func (o Options) sourceRate(reported float64, live bool) (float64, error) {
	if o.Mode == Batch {
		if reported != o.NominalBatchRate {
			return 0, fmt.Errorf("%w: batch mode needs %g fps, source reports %g", ErrRateMismatch, o.NominalBatchRate, reported)
		}
		return reported, nil
	}

	rate := math.Round(reported)
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		rate = 0
	}
	if live && rate < 1 {
		return o.DefaultLiveRate, nil
	}
	if !live && rate < o.MinFileRate {
		return 0, fmt.Errorf("%w: source reports %g fps, minimum is %g", ErrRateMismatch, reported, o.MinFileRate)
	}
	return rate, nil
}

// stepFor is the number of source frames per analysed sample.
func (o Options) stepFor(rate float64) int {
	step := int(math.Floor(rate / o.TargetRate))
	if step < 1 {
		return 1
	}
	return step
}
