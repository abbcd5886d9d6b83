// Command gen-recording writes keypoint recordings for testing replay: a
// synthetic stand-then-fall sequence, or a conversion of an existing
// JSON-lines recording, as JSON lines or as a pcap of UDP datagrams.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/testutil"
)

func main() {
	output := flag.String("o", "fall.jsonl", "output path (.pcap writes a UDP capture)")
	from := flag.String("from", "", "convert this JSON-lines recording instead of generating one")
	frames := flag.Int("n", 90, "number of synthetic frames")
	fps := flag.Float64("fps", 30, "frame rate written to the header and capture timestamps")
	port := flag.Int("port", source.DefaultUDPPort, "UDP port for pcap output")
	flag.Parse()

	var lines [][]byte
	var err error
	if *from != "" {
		lines, err = readLines(*from)
	} else {
		lines, err = synthetic(*frames, *fps)
	}
	if err != nil {
		log.Fatalf("failed to build recording: %v", err)
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *output, err)
	}
	defer f.Close()

	if strings.HasSuffix(*output, ".pcap") {
		err = source.WritePCAP(f, *port, *fps, time.Now(), lines)
	} else {
		err = writeLines(f, lines)
	}
	if err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("wrote %d records to %s", len(lines), *output)
}

func synthetic(n int, fps float64) ([][]byte, error) {
	lines := [][]byte{[]byte(fmt.Sprintf(`{"fps":%g,"joints":17}`, fps))}
	for i, d := range testutil.FallSequence(n) {
		b, err := source.EncodeFrame(i, d)
		if err != nil {
			return nil, err
		}
		lines = append(lines, b)
	}
	return lines, nil
}

func readLines(path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines [][]byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}
	return lines, sc.Err()
}

func writeLines(w io.Writer, lines [][]byte) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		bw.Write(l)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
