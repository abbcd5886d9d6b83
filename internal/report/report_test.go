package report

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/stream"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testSeries(m cost.Method, threshold float64) Series {
	costs := []float64{1, 2, 3, 30, 45, 40, 5, 2, math.NaN(), 1}
	falls := make([]bool, len(costs))
	frames := make([]int, len(costs))
	for i, c := range costs {
		falls[i] = c > threshold
		frames[i] = 30 + 5*i
	}
	return Series{Method: m, Threshold: threshold, Frames: frames, Costs: costs, Falls: falls}
}

func TestFromRecords(t *testing.T) {
	now := time.Now()
	recs := []stream.Record{
		{SampleIndex: 0, FrameIndex: 30, RawCost: 1, SmoothedCost: 2, Verdict: classify.NoFall, Timestamp: now},
		{SampleIndex: 1, FrameIndex: 35, RawCost: 50, SmoothedCost: 25, Verdict: classify.Fall, Timestamp: now},
	}
	s := FromRecords(cost.DifferenceMean, 21, recs)
	assert.Equal(t, []int{30, 35}, s.Frames)
	assert.Equal(t, []float64{2, 25}, s.Costs)
	assert.Equal(t, []float64{1, 50}, s.Raw)
	assert.Equal(t, []bool{false, true}, s.Falls)
}

func TestSummarize(t *testing.T) {
	s := testSeries(cost.DifferenceMean, 21)

	sum := Summarize(s, nil)
	assert.Equal(t, 10, sum.Samples)
	assert.Equal(t, 3, sum.Falls)
	require.NotNil(t, sum.FirstFall)
	assert.Equal(t, 45, *sum.FirstFall)
	assert.Equal(t, 45.0, sum.MaxSmoothed)
	assert.InDelta(t, 129.0/9, sum.MeanSmoothed, 1e-12)
	assert.Nil(t, sum.SpanHits)

	sum = Summarize(s, &FallSpan{Start: 4, End: 6})
	require.NotNil(t, sum.SpanHits)
	assert.Equal(t, 2, *sum.SpanHits)
	assert.Equal(t, 1, *sum.OutsideHits)
}

func TestSummarizeEmpty(t *testing.T) {
	sum := Summarize(Series{Method: cost.Mean}, nil)
	assert.Zero(t, sum.Samples)
	assert.Zero(t, sum.MaxSmoothed)
	assert.Nil(t, sum.FirstFall)
}

func TestFallSpanValid(t *testing.T) {
	var nilSpan *FallSpan
	assert.False(t, nilSpan.Valid())
	assert.False(t, (&FallSpan{Start: 5, End: 2}).Valid())
	assert.False(t, (&FallSpan{Start: -1, End: 2}).Valid())
	assert.True(t, (&FallSpan{Start: 2, End: 2}).Valid())
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	series := []Series{testSeries(cost.DifferenceMean, 21), testSeries(cost.Mean, 100)}
	require.NoError(t, WriteSummaries(&buf, series, nil))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "DifferenceMean", got[0]["method"])
	assert.Equal(t, 0.0, got[1]["falls"])
	assert.NotContains(t, got[1], "first_fall_frame")
}

func TestPlotCosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "cost.png")
	require.NoError(t, PlotCosts(path, testSeries(cost.DifferenceMean, 21), &FallSpan{Start: 3, End: 5}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))
}

func TestPlotCostsEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.png")
	require.NoError(t, PlotCosts(path, Series{Method: cost.Division, Threshold: 5}, nil))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestPlotComparison(t *testing.T) {
	var series []Series
	thresholds := classify.DefaultThresholds()
	for _, m := range cost.Methods() {
		th, ok := thresholds.For(m)
		require.True(t, ok)
		series = append(series, testSeries(m, th))
	}
	path := filepath.Join(t.TempDir(), "compare.png")
	require.NoError(t, PlotComparison(path, series, nil))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, pngMagic))

	assert.Error(t, PlotComparison(path, nil, nil))
}

func TestHTMLComparison(t *testing.T) {
	series := []Series{testSeries(cost.DifferenceMean, 21), testSeries(cost.DifferenceSum, 600)}
	var buf bytes.Buffer
	require.NoError(t, HTMLComparison(&buf, series))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "DifferenceMean")
	assert.Contains(t, html, "DifferenceSum")
	assert.Contains(t, html, "All methods")
	assert.Contains(t, html, "threshold")
}

func TestHTMLComparisonSingleSeriesHasNoOverlay(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTMLComparison(&buf, []Series{testSeries(cost.Mean, 100)}))
	assert.NotContains(t, buf.String(), "All methods")
}
