package stream

import (
	"fmt"
	"time"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/features"
	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/smoothing"
)

// Outcome describes what happened to one sampled detection.
type Outcome int

const (
	// Seeded means the detection became the first previous state.
	Seeded Outcome = iota
	// NoDetection means the detection was empty and was skipped.
	NoDetection
	// Degenerate means too many angles were undefined and the frame was skipped.
	Degenerate
	// Warming means a cost was pushed but the window has not emitted yet.
	Warming
	// Emitted means a record was produced.
	Emitted
)

func (o Outcome) String() string {
	switch o {
	case Seeded:
		return "seeded"
	case NoDetection:
		return "no detection"
	case Degenerate:
		return "degenerate"
	case Warming:
		return "warming"
	case Emitted:
		return "emitted"
	}
	return "unknown"
}

// Session holds the state carried between sampled frames of one stream:
// the previous keypoints and angles, the previous cost and the smoothing
// window. It is not safe for concurrent use.
type Session struct {
	runID      string
	schema     keypoints.Schema
	weights    []float64
	limit      int
	engine     *cost.Engine
	classifier classify.Classifier
	window     *smoothing.Window

	state         State
	prevKeypoints keypoints.Detection
	prevAngles    []float64
	prevCost      float64

	stats Stats
}

// NewSession builds the per-stream state for opts. The session starts in
// the Seeding state.
func NewSession(runID string, opts Options) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	engine, err := cost.NewEngine(opts.Method, cost.Params{TargetRate: opts.TargetRate, Epsilon: opts.Epsilon})
	if err != nil {
		return nil, err
	}
	classifier, err := classify.New(opts.Method, opts.Thresholds)
	if err != nil {
		return nil, err
	}
	window, err := smoothing.NewWindow(opts.WindowCapacity(), opts.WarmupSamples, opts.WindowWeights)
	if err != nil {
		return nil, fmt.Errorf("smoothing window: %w", err)
	}
	return &Session{
		runID:      runID,
		schema:     opts.Schema,
		weights:    opts.AngleWeights,
		limit:      opts.DegenerateLimit,
		engine:     engine,
		classifier: classifier,
		window:     window,
		state:      Seeding,
		stats:      Stats{RunID: runID},
	}, nil
}

// State returns the session lifecycle state.
func (s *Session) State() State { return s.state }

// Stats returns the counters accumulated so far.
func (s *Session) Stats() Stats { return s.stats }

// Threshold is the classifier cutoff in use.
func (s *Session) Threshold() float64 { return s.classifier.Threshold() }

// Observe advances the session by one sampled detection. The returned
// Record is only meaningful when the outcome is Emitted.
func (s *Session) Observe(frameIndex int, d keypoints.Detection, now time.Time) (Record, Outcome) {
	if d.Empty() {
		s.stats.DetectionFailures++
		diagf("frame %d: no person detected", frameIndex)
		return Record{}, NoDetection
	}

	aug := keypoints.CollectData(d, s.schema)
	angles := features.Angles(aug, s.schema, s.weights)

	if s.state == Seeding {
		s.prevKeypoints = aug
		s.prevAngles = angles
		s.prevCost = 0
		s.state = Running
		diagf("frame %d: seeded previous state", frameIndex)
		return Record{}, Seeded
	}

	if features.Degenerate(s.prevAngles, s.limit) || features.Degenerate(angles, s.limit) {
		s.stats.DegenerateFrames++
		diagf("frame %d: dropped, %d of %d angles undefined", frameIndex, features.CountUndefined(angles), len(angles))
		return Record{}, Degenerate
	}

	c, substituted := s.engine.Compute(s.prevAngles, angles, s.prevCost)
	if substituted {
		s.stats.SubstitutedCosts++
		diagf("frame %d: undefined cost, reusing %.3f", frameIndex, c)
	}
	s.stats.Costs++
	s.prevKeypoints = aug
	s.prevAngles = angles
	s.prevCost = c

	smoothed, ok := s.window.Push(c)
	tracef("frame %d: raw cost %.3f window %d/%d", frameIndex, c, s.window.Len(), s.window.Capacity())
	if !ok {
		return Record{}, Warming
	}

	verdict := s.classifier.Classify(smoothed)
	rec := Record{
		RunID:        s.runID,
		Method:       s.engine.Method(),
		SampleIndex:  s.stats.Emitted,
		FrameIndex:   frameIndex,
		RawCost:      c,
		SmoothedCost: smoothed,
		Threshold:    s.classifier.Threshold(),
		Verdict:      verdict,
		Timestamp:    now,
	}
	s.stats.Emitted++
	if verdict == classify.Fall {
		s.stats.Falls++
	}
	return rec, Emitted
}

// PreviousKeypoints returns the augmented keypoints of the last accepted frame.
func (s *Session) PreviousKeypoints() keypoints.Detection { return s.prevKeypoints }

// PreviousCost returns the last accepted raw cost.
func (s *Session) PreviousCost() float64 { return s.prevCost }

func (s *Session) terminate() { s.state = Terminated }
