package keypoints

import (
	"errors"
	"fmt"
)

// COCO-17 joint indices, the ordering produced by OpenPifPaf and most
// top-down pose models.
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	COCOJoints
)

// Number of points AddExtraPoints appends to a raw detection.
const ExtraPoints = 5

// Schema ties joint indices to anatomy and declares the vector and angle
// tables evaluated by the feature extractor. Tables index the augmented set:
// raw joints first, then shoulder midpoint, hip midpoint, head centroid and
// the two calibration points.
type Schema struct {
	Name string `json:"name"`

	// RawJoints is the number of joints the detector reports per person.
	RawJoints int `json:"raw_joints"`

	ShoulderPair [2]int `json:"shoulder_pair"`
	HipPair      [2]int `json:"hip_pair"`
	HeadJoints   []int  `json:"head_joints"`

	// Calibration holds two fixed image points forming the vertical
	// reference vector. They are configuration, not body measurements.
	Calibration [2][2]float64 `json:"calibration"`

	// Vectors lists [from, to] index pairs. A vector is Points[from] -
	// Points[to].
	Vectors [][2]int `json:"vectors"`

	// AnglePairs lists [a, b] index pairs into Vectors; each yields one angle.
	AnglePairs [][2]int `json:"angle_pairs"`
}

// COCO17 returns the default schema for a 17-joint COCO detector.
func COCO17() Schema {
	return Schema{
		Name:         "coco17",
		RawJoints:    COCOJoints,
		ShoulderPair: [2]int{LeftShoulder, RightShoulder},
		HipPair:      [2]int{LeftHip, RightHip},
		HeadJoints:   []int{Nose, LeftEye, RightEye, LeftEar, RightEar},
		Calibration:  [2][2]float64{{1, 1}, {1, 100}},
		Vectors: [][2]int{
			{19, 17}, // head -> shoulder midpoint
			{19, 18}, // head -> hip midpoint
			{6, 12},  // right shoulder -> right hip
			{5, 11},  // left shoulder -> left hip
			{6, 8},   // right upper arm
			{5, 7},   // left upper arm
			{12, 14}, // right thigh
			{11, 13}, // left thigh
			{11, 12}, // hip line
			{13, 15}, // left shin
			{14, 16}, // right shin
			{20, 21}, // vertical reference
		},
		AnglePairs: [][2]int{
			{4, 2}, {5, 3}, {6, 10}, {7, 9},
			{8, 6}, {8, 7}, {0, 11}, {1, 11},
		},
	}
}

// ShoulderMidIndex is the augmented index of the shoulder midpoint.
func (s Schema) ShoulderMidIndex() int { return s.RawJoints }

// HipMidIndex is the augmented index of the hip midpoint.
func (s Schema) HipMidIndex() int { return s.RawJoints + 1 }

// HeadIndex is the augmented index of the head centroid.
func (s Schema) HeadIndex() int { return s.RawJoints + 2 }

// AugmentedLen is the number of points after AddExtraPoints.
func (s Schema) AugmentedLen() int { return s.RawJoints + ExtraPoints }

// NumAngles is the length of the angle vector the schema produces.
func (s Schema) NumAngles() int { return len(s.AnglePairs) }

// Validate checks every table index against the augmented layout.
func (s Schema) Validate() error {
	if s.RawJoints <= 0 {
		return fmt.Errorf("schema %q: raw_joints must be positive, got %d", s.Name, s.RawJoints)
	}
	raw := func(field string, idx int) error {
		if idx < 0 || idx >= s.RawJoints {
			return fmt.Errorf("schema %q: %s index %d outside raw joints [0,%d)", s.Name, field, idx, s.RawJoints)
		}
		return nil
	}
	for _, idx := range s.ShoulderPair {
		if err := raw("shoulder_pair", idx); err != nil {
			return err
		}
	}
	for _, idx := range s.HipPair {
		if err := raw("hip_pair", idx); err != nil {
			return err
		}
	}
	if len(s.HeadJoints) == 0 {
		return fmt.Errorf("schema %q: head_joints must not be empty", s.Name)
	}
	for _, idx := range s.HeadJoints {
		if err := raw("head_joints", idx); err != nil {
			return err
		}
	}
	if len(s.Vectors) == 0 || len(s.AnglePairs) == 0 {
		return errors.New("schema " + s.Name + ": vectors and angle_pairs must not be empty")
	}
	n := s.AugmentedLen()
	for i, v := range s.Vectors {
		for _, idx := range v {
			if idx < 0 || idx >= n {
				return fmt.Errorf("schema %q: vector %d references point %d outside [0,%d)", s.Name, i, idx, n)
			}
		}
	}
	for i, p := range s.AnglePairs {
		for _, idx := range p {
			if idx < 0 || idx >= len(s.Vectors) {
				return fmt.Errorf("schema %q: angle pair %d references vector %d outside [0,%d)", s.Name, i, idx, len(s.Vectors))
			}
		}
	}
	return nil
}
