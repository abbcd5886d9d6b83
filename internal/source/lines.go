package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/banshee-data/fallsense/internal/stream"
)

// maxLineSize bounds one JSON record; a 17-joint frame is well under 2KB.
const maxLineSize = 64 * 1024

type line struct {
	b   []byte
	err error
}

// LineSource reads newline-delimited frame records from a reader. Scanning
// happens on a goroutine so Next honours context cancellation even while
// the reader blocks (serial ports, stdin).
type LineSource struct {
	name string
	rc   io.ReadCloser
	rate float64
	live bool

	pending [][]byte
	lines   chan line
	done    chan struct{}
	start   sync.Once
	stop    sync.Once
	index   int
}

// NewLineSource wraps rc. For a recording (live == false) the first line is
// read immediately so a header can set the frame rate; rate is used when
// there is no header.
func NewLineSource(name string, rc io.ReadCloser, rate float64, live bool) (*LineSource, error) {
	s := &LineSource{
		name:  name,
		rc:    rc,
		rate:  rate,
		live:  live,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
	if live {
		return s, nil
	}

	br := bufio.NewReaderSize(rc, maxLineSize)
	first, err := readLine(br)
	if err != nil && err != io.EOF {
		rc.Close()
		return nil, fmt.Errorf("%w: %s: %v", stream.ErrSourceUnavailable, name, err)
	}
	if h, ok := ParseHeader(first); ok {
		if h.FPS > 0 {
			s.rate = h.FPS
		}
		diagf("%s: header fps=%g joints=%d", name, h.FPS, h.Joints)
	} else if len(bytes.TrimSpace(first)) > 0 {
		s.pending = append(s.pending, first)
	}
	s.rc = readCloser{Reader: br, Closer: rc}
	return s, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func readLine(br *bufio.Reader) ([]byte, error) {
	b, err := br.ReadBytes('\n')
	if err == io.EOF && len(b) > 0 {
		err = nil
	}
	return bytes.TrimRight(b, "\r\n"), err
}

func (s *LineSource) scan() {
	defer close(s.lines)
	sc := bufio.NewScanner(s.rc)
	sc.Buffer(make([]byte, 0, 4096), maxLineSize)
	for sc.Scan() {
		b := append([]byte(nil), sc.Bytes()...)
		select {
		case s.lines <- line{b: b}:
		case <-s.done:
			return
		}
	}
	if err := sc.Err(); err != nil {
		select {
		case s.lines <- line{err: err}:
		case <-s.done:
		}
	}
}

// Next returns the next frame record. Blank lines and header lines are
// skipped.
func (s *LineSource) Next(ctx context.Context) (stream.Frame, error) {
	for {
		var b []byte
		if len(s.pending) > 0 {
			b, s.pending = s.pending[0], s.pending[1:]
		} else {
			s.start.Do(func() { go s.scan() })
			select {
			case <-ctx.Done():
				return stream.Frame{}, ctx.Err()
			case <-s.done:
				return stream.Frame{}, io.EOF
			case l, ok := <-s.lines:
				if !ok {
					return stream.Frame{}, io.EOF
				}
				if l.err != nil {
					return stream.Frame{}, fmt.Errorf("%s: %w", s.name, l.err)
				}
				b = l.b
			}
		}

		if len(bytes.TrimSpace(b)) == 0 {
			continue
		}
		if _, ok := ParseHeader(b); ok {
			continue
		}
		f := stream.Frame{Index: s.index, Payload: b}
		s.index++
		tracef("%s: frame %d (%d bytes)", s.name, f.Index, len(b))
		return f, nil
	}
}

// Rate returns the header or configured frame rate.
func (s *LineSource) Rate() float64 { return s.rate }

// Live reports whether the reader is a live feed.
func (s *LineSource) Live() bool { return s.live }

// Close stops the scanner and closes the reader. It is safe to call more
// than once.
func (s *LineSource) Close() error {
	var err error
	s.stop.Do(func() {
		close(s.done)
		err = s.rc.Close()
	})
	return err
}
