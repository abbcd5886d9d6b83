package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/fallsense/internal/keypoints"
)

func TestPosesHaveCOCOLength(t *testing.T) {
	for name, d := range map[string]keypoints.Detection{
		"standing": StandingPose(),
		"fallen":   FallenPose(),
		"occluded": OccludedPose(),
	} {
		assert.Equal(t, keypoints.COCOJoints, d.Len(), name)
	}
}

func TestFallSequence(t *testing.T) {
	seq := FallSequence(30)
	assert.Len(t, seq, 30)
	assert.Equal(t, StandingPose(), seq[0])
	assert.Equal(t, FallenPose(), seq[29])
	assert.Equal(t, FallenPose(), seq[19], "collapse ends at the second third")
}

func TestLerpEndpoints(t *testing.T) {
	a, b := StandingPose(), FallenPose()
	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, b, Lerp(a, b, 1))
}
