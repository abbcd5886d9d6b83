package monitor

import (
	"sync"
	"time"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/stream"
)

// DefaultRecentCapacity bounds the records a Tracker keeps for the live chart.
const DefaultRecentCapacity = 600

// Status is a snapshot of the run a Tracker is following.
type Status struct {
	RunID     string         `json:"run_id,omitempty"`
	Source    string         `json:"source,omitempty"`
	Method    cost.Method    `json:"method"`
	Mode      string         `json:"mode,omitempty"`
	Threshold float64        `json:"threshold"`
	Emitted   int            `json:"emitted"`
	Falls     int            `json:"falls"`
	LastFall  *time.Time     `json:"last_fall,omitempty"`
	Latest    *stream.Record `json:"latest,omitempty"`
}

// Tracker is a stream.Sink that remembers the latest records of the run in
// progress so the web server can report on it.
type Tracker struct {
	mu       sync.Mutex
	status   Status
	recent   []stream.Record
	capacity int
}

// NewTracker returns a tracker keeping at most capacity recent records.
// capacity <= 0 selects DefaultRecentCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultRecentCapacity
	}
	return &Tracker{capacity: capacity}
}

// Begin resets the tracker for a new run.
func (t *Tracker) Begin(source string, opts stream.Options, threshold float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = Status{
		RunID:     opts.RunID,
		Source:    source,
		Method:    opts.Method,
		Mode:      opts.Mode.String(),
		Threshold: threshold,
	}
	t.recent = t.recent[:0]
}

// Emit records r.
func (t *Tracker) Emit(r stream.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.RunID == "" {
		t.status.RunID = r.RunID
	}
	t.status.Method = r.Method
	t.status.Threshold = r.Threshold
	t.status.Emitted++
	if r.Verdict == classify.Fall {
		t.status.Falls++
		ts := r.Timestamp
		t.status.LastFall = &ts
	}
	latest := r
	t.status.Latest = &latest

	if len(t.recent) == t.capacity {
		copy(t.recent, t.recent[1:])
		t.recent = t.recent[:len(t.recent)-1]
	}
	t.recent = append(t.recent, r)
	return nil
}

// Status returns a copy of the current status.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.status
	if s.Latest != nil {
		latest := *s.Latest
		s.Latest = &latest
	}
	return s
}

// Recent returns the retained records, oldest first.
func (t *Tracker) Recent() []stream.Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]stream.Record, len(t.recent))
	copy(out, t.recent)
	return out
}
