package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/banshee-data/fallsense/internal/stream"
)

// readPoll bounds each blocking read so cancellation is noticed promptly.
const readPoll = 100 * time.Millisecond

// UDPSource receives one frame record per datagram.
type UDPSource struct {
	conn    *net.UDPConn
	rate    float64
	buf     []byte
	index   int
	dropped int
}

// ListenUDP binds addr (for example ":9750") and returns a live source.
func ListenUDP(addr string, rate float64) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", stream.ErrSourceUnavailable, addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s: %v", stream.ErrSourceUnavailable, addr, err)
	}
	opsf("UDP keypoint listener started on %s", conn.LocalAddr())
	return &UDPSource{conn: conn, rate: rate, buf: make([]byte, maxLineSize)}, nil
}

// Addr returns the bound local address.
func (s *UDPSource) Addr() net.Addr { return s.conn.LocalAddr() }

// Next blocks until a frame datagram arrives or ctx is done.
func (s *UDPSource) Next(ctx context.Context) (stream.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return stream.Frame{}, err
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(readPoll)); err != nil {
			return stream.Frame{}, err
		}
		n, from, err := s.conn.ReadFromUDP(s.buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return stream.Frame{}, io.EOF
			}
			return stream.Frame{}, err
		}
		payload := append([]byte(nil), s.buf[:n]...)
		if _, ok := ParseHeader(payload); ok {
			diagf("UDP header from %v ignored", from)
			continue
		}
		if n == 0 {
			s.dropped++
			continue
		}
		f := stream.Frame{Index: s.index, Time: time.Now(), Payload: payload}
		s.index++
		tracef("UDP frame %d from %v (%d bytes)", f.Index, from, n)
		return f, nil
	}
}

// Rate returns the configured rate; zero lets the driver pick its default.
func (s *UDPSource) Rate() float64 { return s.rate }

// Live is always true.
func (s *UDPSource) Live() bool { return true }

// Close releases the socket.
func (s *UDPSource) Close() error {
	if s.dropped > 0 {
		diagf("UDP listener dropped %d empty datagrams", s.dropped)
	}
	return s.conn.Close()
}
