package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/db"
	"github.com/banshee-data/fallsense/internal/keypoints"
	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/stream"
	"github.com/banshee-data/fallsense/internal/testutil"
)

func recording(t *testing.T, header string, dets []keypoints.Detection) []byte {
	t.Helper()
	var buf bytes.Buffer
	if header != "" {
		buf.WriteString(header + "\n")
	}
	for i, d := range dets {
		b, err := source.EncodeFrame(i, d)
		require.NoError(t, err)
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeRecording(t *testing.T, header string, dets []keypoints.Detection) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fall.jsonl")
	require.NoError(t, os.WriteFile(path, recording(t, header, dets), 0644))
	return path
}

func TestRunBatchRecording(t *testing.T) {
	dir := t.TempDir()
	rc := runConfig{
		Source:  writeRecording(t, `{"fps":30,"joints":17}`, testutil.FallSequence(90)),
		Batch:   true,
		DBPath:  filepath.Join(dir, "runs.db"),
		OutPath: filepath.Join(dir, "records.jsonl"),
		SaveDir: filepath.Join(dir, "report"),
	}
	stats, err := run(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 90, stats.FramesRead)
	assert.Equal(t, 12, stats.Emitted)
	assert.Equal(t, 3, stats.Falls)

	out, err := os.ReadFile(rc.OutPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 12)
	var first stream.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, stats.RunID, first.RunID)
	assert.Equal(t, cost.DifferenceMean, first.Method)

	store, err := db.Open(rc.DBPath)
	require.NoError(t, err)
	defer store.Close()
	saved, err := store.Run(stats.RunID)
	require.NoError(t, err)
	assert.Equal(t, "batch", saved.Mode)
	assert.Equal(t, 3, saved.Falls)
	require.NotNil(t, saved.FinishedAt)
	samples, err := store.Samples(stats.RunID)
	require.NoError(t, err)
	assert.Len(t, samples, 12)

	pngs, err := filepath.Glob(filepath.Join(rc.SaveDir, "DifferenceMean-*.png"))
	require.NoError(t, err)
	assert.Len(t, pngs, 1)
	htmls, err := filepath.Glob(filepath.Join(rc.SaveDir, "DifferenceMean-*.html"))
	require.NoError(t, err)
	assert.Len(t, htmls, 1)
}

func TestRunBatchRejectsWrongRate(t *testing.T) {
	dir := t.TempDir()
	rc := runConfig{
		Source: writeRecording(t, `{"fps":25,"joints":17}`, testutil.FallSequence(30)),
		Batch:  true,
		DBPath: filepath.Join(dir, "runs.db"),
	}
	_, err := run(context.Background(), rc)
	require.ErrorIs(t, err, stream.ErrRateMismatch)

	store, err := db.Open(rc.DBPath)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Contains(t, runs[0].Error, "rate")
}

func TestRunStdinToStdout(t *testing.T) {
	var stdout bytes.Buffer
	rc := runConfig{
		Source:    "-",
		Method:    "Mean",
		SourceFPS: 30,
		OutPath:   "-",
		Stdin:     bytes.NewReader(recording(t, "", testutil.FallSequence(60))),
		Stdout:    &stdout,
	}
	stats, err := run(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 60, stats.FramesRead)

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.Len(t, lines, stats.Emitted)
	var rec stream.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, cost.Mean, rec.Method)
	th, _ := classify.DefaultThresholds().For(cost.Mean)
	assert.Equal(t, th, rec.Threshold)
}

func TestRunRejectsUnknownMethod(t *testing.T) {
	_, err := run(context.Background(), runConfig{Source: "-", Method: "Median"})
	assert.ErrorIs(t, err, cost.ErrInvalidMethod)
}

func TestRunMissingSource(t *testing.T) {
	_, err := run(context.Background(), runConfig{Source: filepath.Join(t.TempDir(), "nope.jsonl")})
	assert.ErrorIs(t, err, stream.ErrSourceUnavailable)
}

func TestRunWithConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"method":"Division","thresholds":{"Division":1000}}`), 0644))
	var stdout bytes.Buffer
	rc := runConfig{
		Source:     writeRecording(t, `{"fps":30}`, testutil.FallSequence(90)),
		Batch:      true,
		ConfigPath: cfgPath,
		OutPath:    "-",
		Stdout:     &stdout,
	}
	stats, err := run(context.Background(), rc)
	require.NoError(t, err)
	require.Positive(t, stats.Emitted)

	var rec stream.Record
	line, _, _ := strings.Cut(stdout.String(), "\n")
	require.NoError(t, json.Unmarshal([]byte(line), &rec))
	assert.Equal(t, cost.Division, rec.Method)
	assert.Equal(t, 1000.0, rec.Threshold)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
