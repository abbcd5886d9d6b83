package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/fallsense/internal/timeutil"
)

// Driver runs one stream at a time through the signal pipeline.
type Driver struct {
	opts  Options
	clock timeutil.Clock
	state atomic.Int32
}

// NewDriver validates opts and returns a Driver in the Init state.
func NewDriver(opts Options) (*Driver, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if _, ok := opts.Thresholds.For(opts.Method); !ok {
		return nil, fmt.Errorf("no threshold configured for method %s", opts.Method)
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Driver{opts: opts, clock: clock}, nil
}

// State returns the lifecycle state of the current or last run.
func (d *Driver) State() State { return State(d.state.Load()) }

func (d *Driver) setState(s State) { d.state.Store(int32(s)) }

// Options returns the driver configuration.
func (d *Driver) Options() Options { return d.opts }

// Run consumes src until it is exhausted or ctx is cancelled, emitting a
// record to sink for every smoothed sample. The source, and the sink when
// it is an io.Closer, are closed before Run returns on every path.
//
// Cancellation is a normal termination: Stats.Canceled is set and the
// error is nil. A source that cannot be read yields ErrSourceUnavailable and
// an unusable frame rate yields ErrRateMismatch, both before any frame is
// analysed.
func (d *Driver) Run(ctx context.Context, src FrameSource, det Detector, sink Sink) (Stats, error) {
	if src == nil {
		closeSink(sink)
		return Stats{}, fmt.Errorf("%w: no source", ErrSourceUnavailable)
	}
	defer func() {
		if err := src.Close(); err != nil {
			opsf("close source: %v", err)
		}
		closeSink(sink)
		d.setState(Terminated)
	}()
	if det == nil {
		return Stats{}, errors.New("stream: nil detector")
	}
	if sink == nil {
		sink = SinkFunc(func(Record) error { return nil })
	}

	runID := d.opts.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	d.setState(Init)

	rate, err := d.opts.sourceRate(src.Rate(), src.Live())
	if err != nil {
		opsf("run %s: %v", runID, err)
		return Stats{RunID: runID}, err
	}
	step := d.opts.stepFor(rate)

	sess, err := NewSession(runID, d.opts)
	if err != nil {
		return Stats{RunID: runID}, err
	}
	st := &sess.stats
	st.SourceRate = rate
	st.Step = step
	st.Started = d.clock.Now()

	label := "Video"
	var pace time.Duration
	if src.Live() {
		label = "Live"
	} else if d.opts.Pace {
		pace = time.Duration(float64(time.Second) / rate)
	}

	opsf("run %s: %s %s, source %.4g fps, step %d, threshold %.4g",
		runID, d.opts.Mode, d.opts.Method, rate, step, sess.Threshold())
	d.setState(Seeding)

	finish := func() Stats {
		sess.terminate()
		st.Finished = d.clock.Now()
		opsf("run %s: %s after %d frames, %d samples, %d falls (empty %d, degenerate %d, substituted %d)",
			runID, endWord(st.Canceled), st.FramesRead, st.Emitted, st.Falls,
			st.DetectionFailures, st.DegenerateFrames, st.SubstitutedCosts)
		return *st
	}

	for counter := 0; ; counter++ {
		if ctx.Err() != nil {
			st.Canceled = true
			break
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				st.Canceled = true
				break
			}
			finish()
			return *st, fmt.Errorf("%w: read frame %d: %v", ErrSourceUnavailable, counter, err)
		}
		st.FramesRead++
		if pace > 0 {
			d.clock.Sleep(pace)
		}

		if counter%step != 0 {
			continue
		}
		st.FramesSampled++

		detection, err := det.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				st.Canceled = true
				break
			}
			st.DetectorErrors++
			diagf("frame %d: detector: %v", counter, err)
			detection.Points = nil
		}

		now := frame.Time
		if now.IsZero() {
			now = d.clock.Now()
		}
		rec, outcome := sess.Observe(counter, detection, now)
		if sess.State() == Running {
			d.setState(Running)
		}
		if outcome != Emitted {
			continue
		}

		if err := sink.Emit(rec); err != nil {
			finish()
			return *st, fmt.Errorf("emit sample %d: %w", rec.SampleIndex, err)
		}
		diagf("%s | Frame %d | %s", label, counter, rec.Verdict.Label())
	}

	return finish(), nil
}

func closeSink(sink Sink) {
	if c, ok := sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			opsf("close sink: %v", err)
		}
	}
}

func endWord(canceled bool) string {
	if canceled {
		return "canceled"
	}
	return "finished"
}
