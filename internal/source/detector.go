package source

import (
	"context"

	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/stream"
)

// RecordedDetector decodes the keypoints already carried in a frame
// payload. It stands in for a pose model when replaying recordings or
// receiving keypoints from an external detector.
type RecordedDetector struct {
	// MinConfidence marks keypoints with a lower third value undefined.
	MinConfidence float64
}

// Detect implements stream.Detector.
func (d RecordedDetector) Detect(_ context.Context, f stream.Frame) (keypoints.Detection, error) {
	rec, err := DecodeFrame(f.Payload)
	if err != nil {
		return keypoints.Detection{}, err
	}
	return rec.Detection(d.MinConfidence)
}
