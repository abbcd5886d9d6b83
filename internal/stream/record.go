package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
)

// Record is one smoothed sample and its verdict.
type Record struct {
	RunID        string           `json:"run_id"`
	Method       cost.Method      `json:"method"`
	SampleIndex  int              `json:"sample_index"`
	FrameIndex   int              `json:"frame_index"`
	RawCost      float64          `json:"raw_cost"`
	SmoothedCost float64          `json:"smoothed_cost"`
	Threshold    float64          `json:"threshold"`
	Verdict      classify.Verdict `json:"verdict"`
	Timestamp    time.Time        `json:"timestamp"`
}

// Sink receives emitted records. If a Sink also implements io.Closer the
// driver closes it when the run ends.
type Sink interface {
	Emit(r Record) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(r Record) error

// Emit calls fn.
func (fn SinkFunc) Emit(r Record) error { return fn(r) }

// JSONLSink writes each record as one JSON line.
type JSONLSink struct {
	mu  sync.Mutex
	enc *json.Encoder
	c   io.Closer
}

// NewJSONLSink writes to w. If w is an io.Closer it is closed with the sink.
func NewJSONLSink(w io.Writer) *JSONLSink {
	s := &JSONLSink{enc: json.NewEncoder(w)}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// Emit encodes r.
func (s *JSONLSink) Emit(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Close closes the underlying writer when it is closable.
func (s *JSONLSink) Close() error {
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// MultiSink fans records out to every sink in order, stopping at the first
// error.
type MultiSink []Sink

// Emit forwards r to each sink.
func (m MultiSink) Emit(r Record) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every closable sink and returns the first error.
func (m MultiSink) Close() error {
	var first error
	for _, s := range m {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Collector keeps records in memory. It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	records []Record
}

// Emit appends r.
func (c *Collector) Emit(r Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, r)
	return nil
}

// Records returns a copy of the collected records.
func (c *Collector) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Record(nil), c.records...)
}

// Smoothed returns the smoothed cost of every collected record.
func (c *Collector) Smoothed() []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]float64, len(c.records))
	for i, r := range c.records {
		out[i] = r.SmoothedCost
	}
	return out
}

// Falls returns the number of records with a Fall verdict.
func (c *Collector) Falls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.records {
		if r.Verdict == classify.Fall {
			n++
		}
	}
	return n
}
