package keypoints

import (
	"fmt"
	"math"
)

// Point is one 2D joint estimate in image coordinates.
type Point struct {
	X       float64
	Y       float64
	Defined bool
}

// Pt returns a defined point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y, Defined: true}
}

// Undefined returns the marker for a low-confidence or undetected joint.
func Undefined() Point {
	return Point{X: math.NaN(), Y: math.NaN()}
}

// String implements fmt.Stringer.
func (p Point) String() string {
	if !p.Defined {
		return "(undefined)"
	}
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Sub returns the vector p - q. ok is false when either point is undefined.
func (p Point) Sub(q Point) (dx, dy float64, ok bool) {
	if !p.Defined || !q.Defined {
		return math.NaN(), math.NaN(), false
	}
	return p.X - q.X, p.Y - q.Y, true
}

// Detection is the ordered joint set reported by the detector for one frame.
// Index i carries the joint the Schema assigns to i. A detection with no
// points is a total detection failure for that frame.
type Detection struct {
	Points []Point
}

// Empty reports whether the detector found nothing in the frame.
func (d Detection) Empty() bool {
	return len(d.Points) == 0
}

// Len returns the number of joints.
func (d Detection) Len() int {
	return len(d.Points)
}

// FromPairs builds a Detection from raw [x, y] pairs as emitted by the
// detector. Negative coordinates are kept as-is; HandleMissingValues turns
// them into undefined points.
func FromPairs(pairs [][2]float64) Detection {
	if len(pairs) == 0 {
		return Detection{}
	}
	pts := make([]Point, len(pairs))
	for i, p := range pairs {
		pts[i] = Point{X: p[0], Y: p[1], Defined: true}
	}
	return Detection{Points: pts}
}
