package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/testutil"
)

func TestAngleBetween(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"parallel", []float64{1, 0}, []float64{3, 0}, 0},
		{"orthogonal", []float64{1, 0}, []float64{0, 2}, 90},
		{"opposite", []float64{1, 1}, []float64{-2, -2}, 180},
		{"forty five", []float64{1, 0}, []float64{1, 1}, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, angleBetween(tt.a, tt.b), 1e-9)
		})
	}

	assert.True(t, math.IsNaN(angleBetween([]float64{0, 0}, []float64{1, 0})), "zero norm")
	assert.True(t, math.IsNaN(angleBetween(nil, []float64{1, 0})), "missing vector")
}

func TestAnglesStandingPose(t *testing.T) {
	s := keypoints.COCO17()
	aug := keypoints.CollectData(testutil.StandingPose(), s)

	angles := Angles(aug, s, DefaultWeights(s.NumAngles()))
	require.Len(t, angles, 8)
	for i, a := range angles {
		require.False(t, math.IsNaN(a), "angle %d undefined", i)
		assert.GreaterOrEqual(t, a, 0.0)
		assert.LessOrEqual(t, a, 180.0)
	}

	// Head->shoulder and head->hip are both vertical when standing, so the
	// angle against the vertical reference is 0.
	assert.InDelta(t, 0.0, angles[6], 1e-9)
	assert.InDelta(t, 0.0, angles[7], 1e-9)
}

func TestAnglesFallenPoseTiltsAgainstVertical(t *testing.T) {
	s := keypoints.COCO17()
	aug := keypoints.CollectData(testutil.FallenPose(), s)

	angles := Angles(aug, s, nil)
	assert.InDelta(t, 90.0, angles[6], 1e-6)
	assert.InDelta(t, 90.0, angles[7], 1e-6)
}

func TestAnglesWeights(t *testing.T) {
	s := keypoints.COCO17()
	aug := keypoints.CollectData(testutil.StandingPose(), s)

	plain := Angles(aug, s, nil)
	w := DefaultWeights(s.NumAngles())
	w[0] = 2
	weighted := Angles(aug, s, w)

	assert.InDelta(t, 2*plain[0], weighted[0], 1e-9)
	assert.InDelta(t, plain[1], weighted[1], 1e-9)
}

func TestAnglesUndefinedPropagates(t *testing.T) {
	s := keypoints.COCO17()
	d := testutil.StandingPose()
	d.Points[keypoints.RightElbow] = keypoints.Point{X: -1, Y: -1, Defined: true}
	aug := keypoints.CollectData(d, s)

	angles := Angles(aug, s, nil)
	// Pair 0 uses vector 4 (right upper arm).
	assert.True(t, math.IsNaN(angles[0]))
	assert.Equal(t, 1, CountUndefined(angles))
	assert.False(t, Degenerate(angles, 6))
}

func TestAnglesDegenerateWhenLowerBodyMissing(t *testing.T) {
	s := keypoints.COCO17()
	aug := keypoints.CollectData(testutil.OccludedPose(), s)

	angles := Angles(aug, s, nil)
	assert.True(t, Degenerate(angles, 6), "got %d undefined", CountUndefined(angles))
}

func TestAnglesShortInput(t *testing.T) {
	s := keypoints.COCO17()
	angles := Angles(keypoints.Detection{}, s, nil)
	assert.Equal(t, 8, CountUndefined(angles))
}
