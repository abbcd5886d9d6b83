// Package keypoints models per-frame body-joint detections and the
// anatomical schema that gives each joint index its meaning.
//
// Two kinds of "missing" are kept apart:
//
//   - Detection.Empty reports a whole-frame detection failure (the detector
//     found nobody).
//   - Point.Defined reports a per-joint low-confidence estimate (the detector
//     marks these with a negative coordinate).
//
// The preprocessor turns a raw Detection into an augmented joint set by
// appending the shoulder midpoint, hip midpoint, head centroid and the two
// calibration points declared by the Schema.
package keypoints
