package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/stream"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one processed stream and its outcome counters.
type Run struct {
	ID         string     `json:"run_id"`
	Source     string     `json:"source"`
	Method     string     `json:"method"`
	Mode       string     `json:"mode"`
	Threshold  float64    `json:"threshold"`
	SourceRate float64    `json:"source_rate"`
	Step       int        `json:"step"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	FramesRead        int    `json:"frames_read"`
	FramesSampled     int    `json:"frames_sampled"`
	DetectionFailures int    `json:"detection_failures"`
	DegenerateFrames  int    `json:"degenerate_frames"`
	SubstitutedCosts  int    `json:"substituted_costs"`
	Emitted           int    `json:"emitted"`
	Falls             int    `json:"falls"`
	Canceled          bool   `json:"canceled"`
	Error             string `json:"error,omitempty"`
}

// CreateRun inserts the run header before any sample is recorded.
func (db *DB) CreateRun(r Run) error {
	if r.ID == "" {
		return fmt.Errorf("create run: empty run id")
	}
	_, err := db.Exec(`
		INSERT INTO runs (run_id, source, method, mode, threshold, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Source, r.Method, r.Mode, r.Threshold, r.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("create run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun stores the final counters of a run. runErr, when non-nil, is
// kept as the run's error text.
func (db *DB) FinishRun(id string, st stream.Stats, runErr error) error {
	var errText sql.NullString
	if runErr != nil {
		errText = sql.NullString{String: runErr.Error(), Valid: true}
	}
	finished := st.Finished
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := db.Exec(`
		UPDATE runs SET
			source_rate = ?, step = ?, finished_at = ?,
			frames_read = ?, frames_sampled = ?, detection_failures = ?,
			degenerate_frames = ?, substituted_costs = ?, emitted = ?, falls = ?,
			canceled = ?, error = ?
		WHERE run_id = ?`,
		st.SourceRate, st.Step, finished.UnixNano(),
		st.FramesRead, st.FramesSampled, st.DetectionFailures,
		st.DegenerateFrames, st.SubstitutedCosts, st.Emitted, st.Falls,
		st.Canceled, errText, id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

const runColumns = `run_id, source, method, mode, threshold, source_rate, step,
	started_at, finished_at, frames_read, frames_sampled, detection_failures,
	degenerate_frames, substituted_costs, emitted, falls, canceled, error`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var started int64
	var finished sql.NullInt64
	var errText sql.NullString
	if err := row.Scan(
		&r.ID, &r.Source, &r.Method, &r.Mode, &r.Threshold, &r.SourceRate, &r.Step,
		&started, &finished, &r.FramesRead, &r.FramesSampled, &r.DetectionFailures,
		&r.DegenerateFrames, &r.SubstitutedCosts, &r.Emitted, &r.Falls, &r.Canceled, &errText,
	); err != nil {
		return Run{}, err
	}
	r.StartedAt = time.Unix(0, started).UTC()
	if finished.Valid {
		t := time.Unix(0, finished.Int64).UTC()
		r.FinishedAt = &t
	}
	r.Error = errText.String
	return r, nil
}

// Run returns one run by ID.
func (db *DB) Run(id string) (Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	return r, nil
}

// Runs returns the most recent runs first. limit <= 0 means 100.
func (db *DB) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and, through the foreign key, its samples.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// RecordSample stores one emitted record.
func (db *DB) RecordSample(rec stream.Record) error {
	_, err := db.Exec(`
		INSERT INTO samples (run_id, sample_index, frame_index, raw_cost, smoothed_cost, threshold, fall, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.SampleIndex, rec.FrameIndex, rec.RawCost, rec.SmoothedCost,
		rec.Threshold, rec.Verdict == classify.Fall, rec.Timestamp.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record sample %s/%d: %w", rec.RunID, rec.SampleIndex, err)
	}
	return nil
}

// Samples returns the records of a run in sample order.
func (db *DB) Samples(runID string) ([]stream.Record, error) {
	r, err := db.Run(runID)
	if err != nil {
		return nil, err
	}
	method, err := cost.ParseMethod(r.Method)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`
		SELECT sample_index, frame_index, raw_cost, smoothed_cost, threshold, fall, ts
		FROM samples WHERE run_id = ? ORDER BY sample_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("list samples for %s: %w", runID, err)
	}
	defer rows.Close()

	var out []stream.Record
	for rows.Next() {
		rec := stream.Record{RunID: runID, Method: method}
		var fall bool
		var ts int64
		if err := rows.Scan(&rec.SampleIndex, &rec.FrameIndex, &rec.RawCost, &rec.SmoothedCost, &rec.Threshold, &fall, &ts); err != nil {
			return nil, err
		}
		if fall {
			rec.Verdict = classify.Fall
		}
		rec.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SampleSink writes emitted records to the database. It satisfies
// stream.Sink.
type SampleSink struct {
	db *DB
}

// NewSampleSink returns a sink bound to db.
func (db *DB) NewSampleSink() *SampleSink {
	return &SampleSink{db: db}
}

// Emit stores r.
func (s *SampleSink) Emit(r stream.Record) error {
	return s.db.RecordSample(r)
}
