package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/config"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/report"
	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/stream"
	"github.com/banshee-data/fallsense/internal/testutil"
)

func writeFallRecording(t *testing.T, header string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString(header + "\n")
	for i, d := range testutil.FallSequence(90) {
		b, err := source.EncodeFrame(i, d)
		require.NoError(t, err)
		buf.Write(b)
		buf.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "fall.jsonl")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestCompareAllMethods(t *testing.T) {
	series, err := compare(context.Background(), compareConfig{
		Source: writeFallRecording(t, `{"fps":30,"joints":17}`),
		Config: config.EmptyConfig(),
	})
	require.NoError(t, err)
	require.Len(t, series, len(cost.Methods()))
	for i, m := range cost.Methods() {
		assert.Equal(t, m, series[i].Method)
		assert.Len(t, series[i].Costs, 12, "every method sees the same samples")
	}
	assert.Equal(t, 3, report.Summarize(series[0], nil).Falls)
}

func TestCompareBatchRateMismatch(t *testing.T) {
	_, err := compare(context.Background(), compareConfig{
		Source: writeFallRecording(t, `{"fps":25}`),
		Config: config.EmptyConfig(),
	})
	assert.ErrorIs(t, err, stream.ErrRateMismatch)

	series, err := compare(context.Background(), compareConfig{
		Source:   writeFallRecording(t, `{"fps":25}`),
		Config:   config.EmptyConfig(),
		RealTime: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, series[0].Costs)
}

func TestWriteOutputs(t *testing.T) {
	series, err := compare(context.Background(), compareConfig{
		Source: writeFallRecording(t, `{"fps":30}`),
		Config: config.EmptyConfig(),
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	span := &report.FallSpan{Start: 4, End: 8}
	require.NoError(t, writeOutputs(dir, series, span, true))

	for _, name := range []string{"compare.png", "compare.html", "summary.json"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	b, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var sums []report.Summary
	require.NoError(t, json.Unmarshal(b, &sums))
	require.Len(t, sums, 5)
	require.NotNil(t, sums[0].SpanHits)
	assert.Equal(t, sums[0].Falls, *sums[0].SpanHits+*sums[0].OutsideHits)
}

func TestWriteOutputsWithoutJSON(t *testing.T) {
	dir := t.TempDir()
	s := report.Series{Method: cost.Mean, Threshold: 37, Costs: []float64{1, 2}, Frames: []int{0, 5}, Falls: []bool{false, false}}
	require.NoError(t, writeOutputs(dir, []report.Series{s}, nil, false))
	_, err := os.Stat(filepath.Join(dir, "summary.json"))
	assert.True(t, os.IsNotExist(err))
}
