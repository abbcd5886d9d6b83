package db

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/stream"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "fallsense.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleRun(id string, offset time.Duration) Run {
	return Run{
		ID:        id,
		Source:    "clip.jsonl",
		Method:    cost.DifferenceMean.String(),
		Mode:      stream.Batch.String(),
		Threshold: 21.0,
		StartedAt: start.Add(offset),
	}
}

func TestMigrationsAtLatest(t *testing.T) {
	db := openTestDB(t)
	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.False(t, dirty)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, v)
	assert.Equal(t, uint(2), latest)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateDown())
	_, err := db.Exec(`SELECT 1 FROM samples`)
	assert.Error(t, err)
	_, err = db.Exec(`SELECT 1 FROM runs`)
	assert.NoError(t, err)

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))
	require.NoError(t, db.RecordSample(stream.Record{RunID: "r1", Timestamp: start}))
}

func TestMemoryDatabase(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.CreateRun(sampleRun("mem", 0)))
	runs, err := db.Runs(0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))

	got, err := db.Run("r1")
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, got.StartedAt.Equal(start))

	st := stream.Stats{
		RunID:            "r1",
		SourceRate:       30,
		Step:             5,
		FramesRead:       90,
		FramesSampled:    18,
		DegenerateFrames: 1,
		Emitted:          12,
		Falls:            3,
		Finished:         start.Add(3 * time.Second),
	}
	require.NoError(t, db.FinishRun("r1", st, nil))

	got, err = db.Run("r1")
	require.NoError(t, err)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(start.Add(3*time.Second)))
	assert.Equal(t, 12, got.Emitted)
	assert.Equal(t, 3, got.Falls)
	assert.Equal(t, 5, got.Step)
	assert.Empty(t, got.Error)
	assert.False(t, got.Canceled)
}

func TestFinishRunRecordsError(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))
	require.NoError(t, db.FinishRun("r1", stream.Stats{Canceled: true}, errors.New("source went away")))

	got, err := db.Run("r1")
	require.NoError(t, err)
	assert.Equal(t, "source went away", got.Error)
	assert.True(t, got.Canceled)
}

func TestUnknownRun(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Run("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, db.FinishRun("nope", stream.Stats{}, nil), ErrRunNotFound)
	assert.ErrorIs(t, db.DeleteRun("nope"), ErrRunNotFound)
	_, err = db.Samples("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestCreateRunRejectsEmptyID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.CreateRun(Run{}))
}

func TestRunsNewestFirst(t *testing.T) {
	db := openTestDB(t)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, db.CreateRun(sampleRun(id, time.Duration(i)*time.Minute)))
	}
	runs, err := db.Runs(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
}

func TestSampleSinkRoundTrip(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))

	want := []stream.Record{
		{RunID: "r1", Method: cost.DifferenceMean, SampleIndex: 0, FrameIndex: 30, RawCost: 2.5, SmoothedCost: 4.1, Threshold: 21, Verdict: classify.NoFall, Timestamp: start},
		{RunID: "r1", Method: cost.DifferenceMean, SampleIndex: 1, FrameIndex: 35, RawCost: 60, SmoothedCost: 33.3, Threshold: 21, Verdict: classify.Fall, Timestamp: start.Add(time.Second / 6)},
	}
	var sink stream.Sink = db.NewSampleSink()
	for _, r := range want {
		require.NoError(t, sink.Emit(r))
	}

	got, err := db.Samples("r1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestSampleRequiresRun(t *testing.T) {
	db := openTestDB(t)
	err := db.RecordSample(stream.Record{RunID: "orphan", Timestamp: start})
	assert.Error(t, err)
}

func TestDeleteRunCascades(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))
	require.NoError(t, db.RecordSample(stream.Record{RunID: "r1", Timestamp: start}))
	require.NoError(t, db.DeleteRun("r1"))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n))
	assert.Zero(t, n)
}

func TestBackupHandler(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.CreateRun(sampleRun("r1", 0)))

	rec := httptest.NewRecorder()
	db.serveBackup(rec, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".db.gz")

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00", string(body[:16]))
}

func TestAttachAdminRoutes(t *testing.T) {
	db := openTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))

	srv := httptest.NewServer(mux)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/debug/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
