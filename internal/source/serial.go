package source

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.bug.st/serial"

	"github.com/banshee-data/fallsense/internal/stream"
)

// DefaultBaudRate is used when a serial spec carries no @baud suffix.
const DefaultBaudRate = 115200

// SerialOpener opens a serial port. Tests replace it to avoid hardware.
type SerialOpener func(path string, mode *serial.Mode) (io.ReadWriteCloser, error)

// OpenSerialPort opens a real port with go.bug.st/serial.
func OpenSerialPort(path string, mode *serial.Mode) (io.ReadWriteCloser, error) {
	return serial.Open(path, mode)
}

// ParseSerialSpec splits "port[@baud]".
func ParseSerialSpec(spec string) (path string, baud int, err error) {
	path, baudStr, found := strings.Cut(spec, "@")
	path = strings.TrimSpace(path)
	if path == "" {
		return "", 0, fmt.Errorf("serial spec %q: missing port", spec)
	}
	if !found {
		return path, DefaultBaudRate, nil
	}
	baud, err = strconv.Atoi(strings.TrimSpace(baudStr))
	if err != nil || baud <= 0 {
		return "", 0, fmt.Errorf("serial spec %q: invalid baud rate %q", spec, baudStr)
	}
	return path, baud, nil
}

// SerialMode returns 8N1 at baud.
func SerialMode(baud int) *serial.Mode {
	return &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

// OpenSerial opens a live line source on a serial port. A nil opener uses
// OpenSerialPort.
func OpenSerial(spec string, rate float64, open SerialOpener) (*LineSource, error) {
	path, baud, err := ParseSerialSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", stream.ErrSourceUnavailable, err)
	}
	if open == nil {
		open = OpenSerialPort
	}
	port, err := open(path, SerialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("%w: open serial %s: %v", stream.ErrSourceUnavailable, path, err)
	}
	opsf("serial keypoint feed on %s at %d baud", path, baud)
	return NewLineSource("serial:"+path, port, rate, true)
}
