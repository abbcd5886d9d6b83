package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/fallsense/internal/stream"
)

// PCAPSource replays frame records carried in UDP datagrams of a capture
// file. Capture timestamps are used as frame times.
type PCAPSource struct {
	path    string
	f       *os.File
	packets *gopacket.PacketSource
	port    int
	rate    float64

	pending []stream.Frame
	index   int
	seen    int
}

// OpenPCAP opens a pcap or pcapng capture and keeps UDP datagrams whose
// destination port is port (0 keeps every port). The rate comes from a
// header datagram, then from rate, then from the spacing of the first two
// frames.
func OpenPCAP(path string, port int, rate float64) (*PCAPSource, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrSourceUnavailable, err)
	}

	var data gopacket.PacketDataSource
	var link layers.LinkType
	if strings.EqualFold(filepath.Ext(path), ".pcapng") {
		r, err := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: read pcapng %s: %v", stream.ErrSourceUnavailable, path, err)
		}
		data, link = r, r.LinkType()
	} else {
		r, err := pcapgo.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: read pcap %s: %v", stream.ErrSourceUnavailable, path, err)
		}
		data, link = r, r.LinkType()
	}

	s := &PCAPSource{
		path:    path,
		f:       f,
		packets: gopacket.NewPacketSource(data, link),
		port:    port,
		rate:    rate,
	}
	if err := s.prime(); err != nil {
		f.Close()
		return nil, err
	}
	opsf("PCAP replay %s: port %d, %.4g fps", path, port, s.rate)
	return s, nil
}

// prime reads ahead until the rate is known or two frames are buffered.
func (s *PCAPSource) prime() error {
	for len(s.pending) < 2 {
		payload, ts, err := s.nextPayload()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %v", stream.ErrSourceUnavailable, s.path, err)
		}
		if h, ok := ParseHeader(payload); ok {
			if h.FPS > 0 {
				s.rate = h.FPS
			}
			continue
		}
		s.pending = append(s.pending, s.frame(payload, ts))
		if s.rate > 0 {
			return nil
		}
	}
	if s.rate <= 0 && len(s.pending) == 2 {
		if gap := s.pending[1].Time.Sub(s.pending[0].Time); gap > 0 {
			s.rate = float64(time.Second) / float64(gap)
			diagf("PCAP %s: rate %.4g fps estimated from capture timestamps", s.path, s.rate)
		}
	}
	return nil
}

func (s *PCAPSource) frame(payload []byte, ts time.Time) stream.Frame {
	f := stream.Frame{Index: s.index, Time: ts, Payload: payload}
	s.index++
	return f
}

// nextPayload returns the next matching UDP payload and its capture time.
func (s *PCAPSource) nextPayload() ([]byte, time.Time, error) {
	for {
		packet, err := s.packets.NextPacket()
		if err != nil {
			return nil, time.Time{}, err
		}
		s.seen++
		udpLayer := packet.Layer(layers.LayerTypeUDP)
		if udpLayer == nil {
			continue
		}
		udp, ok := udpLayer.(*layers.UDP)
		if !ok {
			continue
		}
		if s.port != 0 && int(udp.DstPort) != s.port {
			continue
		}
		if len(udp.Payload) == 0 {
			continue
		}
		return append([]byte(nil), udp.Payload...), packet.Metadata().Timestamp, nil
	}
}

// Next returns the next frame in capture order.
func (s *PCAPSource) Next(ctx context.Context) (stream.Frame, error) {
	if err := ctx.Err(); err != nil {
		return stream.Frame{}, err
	}
	if len(s.pending) > 0 {
		f := s.pending[0]
		s.pending = s.pending[1:]
		return f, nil
	}
	for {
		payload, ts, err := s.nextPayload()
		if err != nil {
			return stream.Frame{}, err
		}
		if _, ok := ParseHeader(payload); ok {
			continue
		}
		return s.frame(payload, ts), nil
	}
}

// Rate returns the replay frame rate.
func (s *PCAPSource) Rate() float64 { return s.rate }

// Live is always false.
func (s *PCAPSource) Live() bool { return false }

// Close closes the capture file.
func (s *PCAPSource) Close() error {
	diagf("PCAP %s: %d packets read, %d frames", s.path, s.seen, s.index)
	return s.f.Close()
}

// WritePCAP writes one UDP datagram per payload to w as an Ethernet pcap
// capture, spaced at rate frames per second from start.
func WritePCAP(w io.Writer, port int, rate float64, start time.Time, payloads [][]byte) error {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("write pcap header: %w", err)
	}
	interval := time.Second
	if rate > 0 {
		interval = time.Duration(float64(time.Second) / rate)
	}

	eth := &layers.Ethernet{
		SrcMAC:       []byte{0x02, 0, 0, 0, 0, 1},
		DstMAC:       []byte{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    []byte{192, 168, 1, 10},
		DstIP:    []byte{192, 168, 1, 20},
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(port), DstPort: layers.UDPPort(port)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	for i, p := range payloads {
		buf := gopacket.NewSerializeBuffer()
		if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(p)); err != nil {
			return fmt.Errorf("serialize datagram %d: %w", i, err)
		}
		data := buf.Bytes()
		ci := gopacket.CaptureInfo{
			Timestamp:     start.Add(time.Duration(i) * interval),
			CaptureLength: len(data),
			Length:        len(data),
		}
		if err := pw.WritePacket(ci, data); err != nil {
			return fmt.Errorf("write datagram %d: %w", i, err)
		}
	}
	return nil
}
