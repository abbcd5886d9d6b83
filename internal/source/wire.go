package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/banshee-data/fallsense/internal/keypoints"
)

// Header is the optional first line of a keypoint recording.
type Header struct {
	FPS    float64 `json:"fps"`
	Joints int     `json:"joints,omitempty"`
	Schema string  `json:"schema,omitempty"`
}

// FrameRecord is one line (or datagram) of a keypoint recording. Each
// keypoint is [x, y] or [x, y, confidence]; null marks a joint the detector
// did not report. An empty keypoints array is a frame with no person.
type FrameRecord struct {
	Frame     int          `json:"frame"`
	Keypoints [][]*float64 `json:"keypoints"`
}

// envelope is used to tell a header from a frame record.
type envelope struct {
	FPS       *float64        `json:"fps"`
	Keypoints json.RawMessage `json:"keypoints"`
}

// ParseHeader reports whether line is a header and decodes it.
func ParseHeader(line []byte) (Header, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Header{}, false
	}
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Header{}, false
	}
	if env.FPS == nil || env.Keypoints != nil {
		return Header{}, false
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return Header{}, false
	}
	return h, true
}

// DecodeFrame parses one frame record.
func DecodeFrame(b []byte) (FrameRecord, error) {
	var r FrameRecord
	if err := json.Unmarshal(bytes.TrimSpace(b), &r); err != nil {
		return FrameRecord{}, fmt.Errorf("decode frame record: %w", err)
	}
	return r, nil
}

// EncodeFrame renders d as a frame record line without a trailing newline.
// Undefined joints are written as null.
func EncodeFrame(index int, d keypoints.Detection) ([]byte, error) {
	r := FrameRecord{Frame: index, Keypoints: make([][]*float64, len(d.Points))}
	for i, p := range d.Points {
		if !p.Defined || math.IsNaN(p.X) || math.IsNaN(p.Y) {
			continue
		}
		x, y := p.X, p.Y
		r.Keypoints[i] = []*float64{&x, &y}
	}
	return json.Marshal(r)
}

// Detection converts the record into a detection. A keypoint whose
// confidence is below minConfidence is reported undefined.
func (r FrameRecord) Detection(minConfidence float64) (keypoints.Detection, error) {
	if len(r.Keypoints) == 0 {
		return keypoints.Detection{}, nil
	}
	pts := make([]keypoints.Point, len(r.Keypoints))
	for i, kp := range r.Keypoints {
		switch {
		case kp == nil:
			pts[i] = keypoints.Undefined()
		case len(kp) < 2:
			return keypoints.Detection{}, fmt.Errorf("frame %d keypoint %d: want [x, y], got %d values", r.Frame, i, len(kp))
		case kp[0] == nil || kp[1] == nil:
			pts[i] = keypoints.Undefined()
		case len(kp) > 2 && kp[2] != nil && *kp[2] < minConfidence:
			pts[i] = keypoints.Undefined()
		default:
			pts[i] = keypoints.Pt(*kp[0], *kp[1])
		}
	}
	return keypoints.Detection{Points: pts}, nil
}
