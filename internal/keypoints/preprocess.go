package keypoints

import "math"

// HandleMissingValues marks every joint with a negative or NaN axis as
// undefined. An empty detection passes through unchanged. The input is not
// modified.
func HandleMissingValues(d Detection) Detection {
	if d.Empty() {
		return d
	}
	out := make([]Point, len(d.Points))
	for i, p := range d.Points {
		if !p.Defined || p.X < 0 || p.Y < 0 || math.IsNaN(p.X) || math.IsNaN(p.Y) {
			out[i] = Undefined()
			continue
		}
		out[i] = p
	}
	return Detection{Points: out}
}

// AddExtraPoints appends, in order, the shoulder midpoint, hip midpoint,
// head centroid and the two calibration points. Midpoints are undefined when
// either side is; the head centroid averages whichever head joints are
// defined. An empty detection passes through unchanged.
//
// Detections longer than s.RawJoints are truncated; shorter ones are padded
// with undefined joints.
func AddExtraPoints(d Detection, s Schema) Detection {
	if d.Empty() {
		return d
	}
	pts := d.Points
	switch {
	case len(pts) > s.RawJoints:
		pts = pts[:s.RawJoints]
	case len(pts) < s.RawJoints:
		padded := make([]Point, s.RawJoints)
		copy(padded, pts)
		for i := len(pts); i < s.RawJoints; i++ {
			padded[i] = Undefined()
		}
		pts = padded
	}

	out := make([]Point, 0, s.AugmentedLen())
	out = append(out, pts...)
	out = append(out,
		midpoint(pts[s.ShoulderPair[0]], pts[s.ShoulderPair[1]]),
		midpoint(pts[s.HipPair[0]], pts[s.HipPair[1]]),
		centroid(pts, s.HeadJoints),
		Pt(s.Calibration[0][0], s.Calibration[0][1]),
		Pt(s.Calibration[1][0], s.Calibration[1][1]),
	)
	return Detection{Points: out}
}

// CollectData runs HandleMissingValues then AddExtraPoints.
func CollectData(d Detection, s Schema) Detection {
	return AddExtraPoints(HandleMissingValues(d), s)
}

func midpoint(a, b Point) Point {
	if !a.Defined || !b.Defined {
		return Undefined()
	}
	return Pt((a.X+b.X)/2, (a.Y+b.Y)/2)
}

func centroid(pts []Point, idx []int) Point {
	var sx, sy float64
	n := 0
	for _, i := range idx {
		p := pts[i]
		if !p.Defined {
			continue
		}
		sx += p.X
		sy += p.Y
		n++
	}
	if n == 0 {
		return Undefined()
	}
	return Pt(sx/float64(n), sy/float64(n))
}
