// Package source adapts keypoint feeds to stream.FrameSource.
//
// Every adapter carries the same JSON frame records (see FrameRecord):
// JSON-lines files, pcap captures of UDP datagrams, a live UDP socket, a
// serial line or stdin. RecordedDetector turns the records back into
// keypoint detections.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/fallsense/internal/stream"
)

// DefaultUDPPort is the port used for UDP keypoint feeds and pcap filtering.
const DefaultUDPPort = 9750

// Options tunes Open.
type Options struct {
	// Rate overrides or supplies the source frame rate when the feed has no
	// header. Zero means unknown.
	Rate float64

	// UDPPort filters pcap replays; 0 keeps every port.
	UDPPort int

	Stdin io.Reader

	SerialOpener SerialOpener
}

// Kind names the adapter a spec resolves to.
type Kind string

const (
	KindFile   Kind = "file"
	KindPCAP   Kind = "pcap"
	KindUDP    Kind = "udp"
	KindSerial Kind = "serial"
	KindStdin  Kind = "stdin"
)

// ParseSpec resolves a source spec into its kind and target.
//
//	file:<path> | <path>        JSON-lines recording
//	pcap:<path> | <path>.pcap   UDP capture replay
//	udp:<addr>                  live UDP listener
//	serial:<port>[@baud]        live serial feed
//	- | stdin                   live JSON-lines on stdin
func ParseSpec(spec string) (Kind, string, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", fmt.Errorf("empty source spec")
	}
	if spec == "-" || spec == "stdin" {
		return KindStdin, "", nil
	}
	if kind, target, ok := strings.Cut(spec, ":"); ok {
		switch Kind(kind) {
		case KindFile, KindPCAP, KindUDP, KindSerial:
			if target == "" {
				return "", "", fmt.Errorf("source spec %q: missing target", spec)
			}
			return Kind(kind), target, nil
		}
	}
	switch strings.ToLower(filepath.Ext(spec)) {
	case ".pcap", ".pcapng":
		return KindPCAP, spec, nil
	}
	return KindFile, spec, nil
}

// Open resolves spec and opens the matching source. Every failure wraps
// stream.ErrSourceUnavailable.
func Open(spec string, opts Options) (stream.FrameSource, error) {
	kind, target, err := ParseSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrSourceUnavailable, err)
	}
	var src stream.FrameSource
	switch kind {
	case KindStdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		src, err = asSource(NewLineSource("stdin", io.NopCloser(in), opts.Rate, true))
	case KindUDP:
		src, err = asSource(ListenUDP(target, opts.Rate))
	case KindSerial:
		src, err = asSource(OpenSerial(target, opts.Rate, opts.SerialOpener))
	case KindPCAP:
		src, err = asSource(OpenPCAP(target, opts.UDPPort, opts.Rate))
	default:
		src, err = asSource(OpenFile(target, opts.Rate))
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// asSource drops the typed nil pointer a failed constructor returns so the
// caller never sees a non-nil interface wrapping nil.
func asSource[T stream.FrameSource](s T, err error) (stream.FrameSource, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenFile opens a JSON-lines keypoint recording.
func OpenFile(path string, rate float64) (*LineSource, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrSourceUnavailable, err)
	}
	return NewLineSource(path, f, rate, false)
}
