// Package stream drives keypoint detections from a frame source through the
// cost pipeline and emits smoothed fall verdicts.
//
// This package is the composition root for the signal stages: it imports
// keypoints, features, cost, smoothing and classify, and none of those
// packages import stream. Frame sources, detectors and sinks are narrow
// interfaces implemented elsewhere (internal/source, internal/db).
package stream

import (
	"context"
	"errors"
	"time"

	"github.com/banshee-data/fallsense/internal/keypoints"
)

var (
	// ErrSourceUnavailable is returned when a frame source cannot be opened
	// or fails while being read.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrRateMismatch is returned when the source frame rate is unusable for
	// the selected mode.
	ErrRateMismatch = errors.New("source frame rate mismatch")
)

// Frame is one unit read from a source. Payload is opaque to the driver and
// interpreted by the Detector.
type Frame struct {
	Index   int
	Time    time.Time
	Payload []byte
}

// FrameSource yields frames in order. Next returns io.EOF once the source is
// exhausted.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)

	// Rate is the frame rate the source reports, in frames per second.
	// Zero or negative means unknown.
	Rate() float64

	// Live reports whether the source is a live feed rather than a recording.
	Live() bool

	Close() error
}

// Detector extracts keypoints from a frame. An empty Detection means no
// person was found; an error is counted as a detection failure.
type Detector interface {
	Detect(ctx context.Context, f Frame) (keypoints.Detection, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, f Frame) (keypoints.Detection, error)

// Detect calls fn.
func (fn DetectorFunc) Detect(ctx context.Context, f Frame) (keypoints.Detection, error) {
	return fn(ctx, f)
}

// Mode selects the rate policy.
type Mode int

const (
	// RealTime accepts any usable rate and adapts the sampling step.
	RealTime Mode = iota
	// Batch requires the source to report the nominal batch rate.
	Batch
)

func (m Mode) String() string {
	if m == Batch {
		return "batch"
	}
	return "real-time"
}

// State is the driver lifecycle position.
type State int

const (
	Init State = iota
	Seeding
	Running
	Terminated
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Seeding:
		return "seeding"
	case Running:
		return "running"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}
