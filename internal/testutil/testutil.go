// Package testutil provides shared test fixtures: synthetic poses in the
// COCO-17 layout and pose sequences.
package testutil

import "github.com/banshee-data/fallsense/internal/keypoints"

// StandingPose returns an upright person centred on x=50 with every joint
// detected. Head, shoulder midpoint and hip midpoint share x so the trunk is
// exactly vertical.
func StandingPose() keypoints.Detection {
	return keypoints.FromPairs([][2]float64{
		{50, 10}, {48, 8}, {52, 8}, {46, 10}, {54, 10},
		{40, 30}, {60, 30},
		{38, 50}, {62, 50},
		{37, 70}, {63, 70},
		{44, 80}, {56, 80},
		{44, 110}, {56, 110},
		{44, 140}, {56, 140},
	})
}

// FallenPose returns the same person lying along the x axis at y=100.
func FallenPose() keypoints.Detection {
	return keypoints.FromPairs([][2]float64{
		{10, 100}, {10, 98}, {10, 102}, {12, 96}, {12, 104},
		{30, 90}, {30, 110},
		{45, 85}, {45, 115},
		{60, 85}, {60, 115},
		{70, 95}, {70, 105},
		{95, 95}, {95, 105},
		{120, 95}, {120, 105},
	})
}

// OccludedPose returns a standing pose whose hips, knees and ankles carry the
// detector's low-confidence marker (-1, -1). Most angle features become
// undefined.
func OccludedPose() keypoints.Detection {
	d := StandingPose()
	for _, j := range []int{
		keypoints.LeftHip, keypoints.RightHip,
		keypoints.LeftKnee, keypoints.RightKnee,
		keypoints.LeftAnkle, keypoints.RightAnkle,
	} {
		d.Points[j] = keypoints.Point{X: -1, Y: -1, Defined: true}
	}
	return d
}

// Lerp blends two detections of equal length; t=0 yields a, t=1 yields b.
func Lerp(a, b keypoints.Detection, t float64) keypoints.Detection {
	pts := make([]keypoints.Point, len(a.Points))
	for i := range a.Points {
		pa, pb := a.Points[i], b.Points[i]
		pts[i] = keypoints.Point{
			X:       pa.X + (pb.X-pa.X)*t,
			Y:       pa.Y + (pb.Y-pa.Y)*t,
			Defined: pa.Defined && pb.Defined,
		}
	}
	return keypoints.Detection{Points: pts}
}

// FallSequence returns n detections: standing for the first third, a linear
// collapse over the middle third and lying for the rest.
func FallSequence(n int) []keypoints.Detection {
	out := make([]keypoints.Detection, n)
	stand, fall := StandingPose(), FallenPose()
	third := n / 3
	for i := range out {
		switch {
		case i < third:
			out[i] = stand
		case i < 2*third:
			out[i] = Lerp(stand, fall, float64(i-third+1)/float64(third))
		default:
			out[i] = fall
		}
	}
	return out
}
