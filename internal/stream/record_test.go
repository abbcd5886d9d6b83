package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/testutil"
)

func sampleRecord(i int) Record {
	return Record{
		RunID:        "r1",
		Method:       cost.DifferenceMean,
		SampleIndex:  i,
		FrameIndex:   30 + 5*i,
		RawCost:      12.5,
		SmoothedCost: 60,
		Threshold:    58,
		Verdict:      classify.Fall,
		Timestamp:    time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
	}
}

func TestJSONLSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLSink(&buf)
	require.NoError(t, sink.Emit(sampleRecord(0)))
	require.NoError(t, sink.Emit(sampleRecord(1)))
	require.NoError(t, sink.Close())

	var got []Record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	if diff := cmp.Diff([]Record{sampleRecord(0), sampleRecord(1)}, got); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONLSinkFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONLSink(&buf).Emit(sampleRecord(2)))

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Equal(t, "DifferenceMean", raw["method"])
	assert.Equal(t, "fall", raw["verdict"])
	assert.Equal(t, float64(40), raw["frame_index"])
}

func TestMultiSink(t *testing.T) {
	a, b := &closingCollector{}, &closingCollector{}
	m := MultiSink{a, nil, b}
	require.NoError(t, m.Emit(sampleRecord(0)))
	require.NoError(t, m.Close())

	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiSinkStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	after := &Collector{}
	m := MultiSink{SinkFunc(func(Record) error { return boom }), after}

	require.ErrorIs(t, m.Emit(sampleRecord(0)), boom)
	assert.Empty(t, after.Records())
}

func TestCollectorHelpers(t *testing.T) {
	c := &Collector{}
	r := sampleRecord(0)
	require.NoError(t, c.Emit(r))
	r.Verdict = classify.NoFall
	r.SmoothedCost = 10
	require.NoError(t, c.Emit(r))

	assert.Equal(t, []float64{60, 10}, c.Smoothed())
	assert.Equal(t, 1, c.Falls())
}

func TestSessionLifecycle(t *testing.T) {
	s, err := NewSession("s1", DefaultOptions())
	require.NoError(t, err)
	now := time.Unix(0, 0)

	_, out := s.Observe(0, keypoints.Detection{}, now)
	assert.Equal(t, NoDetection, out)
	assert.Equal(t, Seeding, s.State())

	_, out = s.Observe(5, testutil.StandingPose(), now)
	assert.Equal(t, Seeded, out)
	assert.Equal(t, Running, s.State())
	assert.Equal(t, keypoints.COCO17().AugmentedLen(), s.PreviousKeypoints().Len())

	for i := 0; i < 5; i++ {
		_, out = s.Observe(10+5*i, testutil.StandingPose(), now)
		assert.Equal(t, Warming, out)
	}
	rec, out := s.Observe(35, testutil.StandingPose(), now)
	assert.Equal(t, Emitted, out)
	assert.Equal(t, 0, rec.SampleIndex)
	assert.Equal(t, 35, rec.FrameIndex)
	assert.Equal(t, "s1", rec.RunID)
	assert.Zero(t, s.PreviousCost())

	st := s.Stats()
	assert.Equal(t, 1, st.DetectionFailures)
	assert.Equal(t, 6, st.Costs)
	assert.Equal(t, 1, st.Emitted)
}

func TestSessionDivisionIgnoresZeroPrevious(t *testing.T) {
	opts := DefaultOptions()
	opts.Method = cost.Division
	s, err := NewSession("s2", opts)
	require.NoError(t, err)
	now := time.Unix(0, 0)

	// Zero angles drop out of the Division denominator; the four non-zero
	// ones each contribute 1.
	s.Observe(0, testutil.StandingPose(), now)
	s.Observe(5, testutil.StandingPose(), now)
	assert.InDelta(t, 4.0, s.PreviousCost(), 1e-3)
	assert.Zero(t, s.Stats().SubstitutedCosts)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "batch", Batch.String())
	assert.Equal(t, "real-time", RealTime.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "emitted", Emitted.String())
	assert.Equal(t, "degenerate", Degenerate.String())
}
