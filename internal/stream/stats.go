package stream

import "time"

// Stats summarises one run. Recoverable conditions are counted here rather
// than surfaced as errors.
type Stats struct {
	RunID      string  `json:"run_id"`
	SourceRate float64 `json:"source_rate"`
	Step       int     `json:"step"`

	FramesRead    int `json:"frames_read"`
	FramesSampled int `json:"frames_sampled"`

	// DetectionFailures counts sampled frames with no person (or a detector
	// error). DetectorErrors is the subset caused by an error.
	DetectionFailures int `json:"detection_failures"`
	DetectorErrors    int `json:"detector_errors"`

	// DegenerateFrames counts frames dropped for too many undefined angles.
	DegenerateFrames int `json:"degenerate_frames"`

	// SubstitutedCosts counts undefined costs replaced by the previous cost.
	SubstitutedCosts int `json:"substituted_costs"`

	Costs    int  `json:"costs"`
	Emitted  int  `json:"emitted"`
	Falls    int  `json:"falls"`
	Canceled bool `json:"canceled"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// Duration is the wall time of the run.
func (s Stats) Duration() time.Duration {
	if s.Finished.IsZero() {
		return 0
	}
	return s.Finished.Sub(s.Started)
}
