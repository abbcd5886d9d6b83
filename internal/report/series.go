// Package report renders cost series from fall-detection runs as PNG plots,
// interactive HTML charts and JSON summaries.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/fallsense/internal/classify"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/stream"
)

// Series is the smoothed cost trace of one method over one recording.
type Series struct {
	Method    cost.Method
	Threshold float64
	Frames    []int
	Costs     []float64
	Raw       []float64
	Falls     []bool
}

// FallSpan marks a known fall between two sample indices, inclusive.
type FallSpan struct {
	Start int
	End   int
}

// Valid reports whether the span is usable.
func (s *FallSpan) Valid() bool {
	return s != nil && s.Start >= 0 && s.End >= s.Start
}

// FromRecords builds a Series from emitted records in sample order.
func FromRecords(m cost.Method, threshold float64, recs []stream.Record) Series {
	s := Series{
		Method:    m,
		Threshold: threshold,
		Frames:    make([]int, len(recs)),
		Costs:     make([]float64, len(recs)),
		Raw:       make([]float64, len(recs)),
		Falls:     make([]bool, len(recs)),
	}
	for i, r := range recs {
		s.Frames[i] = r.FrameIndex
		s.Costs[i] = r.SmoothedCost
		s.Raw[i] = r.RawCost
		s.Falls[i] = r.Verdict == classify.Fall
	}
	return s
}

// Summary condenses a Series for machine-readable comparison output.
type Summary struct {
	Method       cost.Method `json:"method"`
	Threshold    float64     `json:"threshold"`
	Samples      int         `json:"samples"`
	Falls        int         `json:"falls"`
	FirstFall    *int        `json:"first_fall_frame,omitempty"`
	MaxSmoothed  float64     `json:"max_smoothed"`
	MeanSmoothed float64     `json:"mean_smoothed"`
	SpanHits     *int        `json:"span_hits,omitempty"`
	OutsideHits  *int        `json:"outside_hits,omitempty"`
}

// Summarize computes a Summary. When span is valid, falls are split into
// those inside and outside it by sample index.
func Summarize(s Series, span *FallSpan) Summary {
	sum := Summary{Method: s.Method, Threshold: s.Threshold, Samples: len(s.Costs)}
	var total float64
	var finite int
	sum.MaxSmoothed = math.Inf(-1)
	var in, out int
	for i, c := range s.Costs {
		if !math.IsNaN(c) && !math.IsInf(c, 0) {
			total += c
			finite++
			if c > sum.MaxSmoothed {
				sum.MaxSmoothed = c
			}
		}
		if !s.Falls[i] {
			continue
		}
		sum.Falls++
		if sum.FirstFall == nil {
			f := s.Frames[i]
			sum.FirstFall = &f
		}
		if span.Valid() && i >= span.Start && i <= span.End {
			in++
		} else {
			out++
		}
	}
	if finite > 0 {
		sum.MeanSmoothed = total / float64(finite)
	} else {
		sum.MaxSmoothed = 0
	}
	if span.Valid() {
		sum.SpanHits, sum.OutsideHits = &in, &out
	}
	return sum
}

// WriteSummaries encodes one Summary per series as an indented JSON array.
func WriteSummaries(w io.Writer, series []Series, span *FallSpan) error {
	out := make([]Summary, len(series))
	for i, s := range series {
		out[i] = Summarize(s, span)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}
	return nil
}
