// Command fallsense runs the fall detection pipeline over one keypoint
// stream, live or recorded, and reports a verdict for every smoothed sample.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/fallsense/internal/monitoring"
	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/stream"
	"github.com/banshee-data/fallsense/internal/version"
)

var (
	sourceSpec    = flag.String("source", "-", "Keypoint source: file path, pcap:<path>, udp:<addr>, serial:<port>[@baud] or - for stdin")
	method        = flag.String("method", "", "Cost method (DifferenceMean, MeanDifference, DifferenceSum, Mean, Division); overrides the config")
	batch         = flag.Bool("batch", false, "Batch mode: require the nominal frame rate and run as fast as possible")
	configPath    = flag.String("config", "", "JSON configuration file (defaults to "+defaultConfigHint+" when present)")
	dbPath        = flag.String("db", "", "SQLite database for run history (empty disables persistence)")
	outPath       = flag.String("out", "", "Write records as JSON lines to this file (- for stdout)")
	saveDir       = flag.String("save", "", "Directory for the PNG plot and HTML chart of the run")
	listen        = flag.String("listen", "", "Serve the monitor web UI on this address while the run is in progress")
	hold          = flag.Bool("hold", false, "Keep serving -listen after the stream ends until interrupted")
	sourceFPS     = flag.Float64("source-fps", 0, "Frame rate for sources without a header (0 = unknown)")
	udpPort       = flag.Int("udp-port", source.DefaultUDPPort, "UDP port filter for pcap replays (0 = any)")
	minConfidence = flag.Float64("min-confidence", 0, "Treat keypoints below this confidence as undetected")
	pace          = flag.Bool("pace", false, "Replay recordings at their frame rate instead of as fast as possible")
	logLevel      = flag.String("log", "", "Log level: ops, diag, trace or off (default $"+monitoring.EnvDebugLog+")")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("fallsense"))
		return
	}

	writers, err := monitoring.WritersFromEnv(*logLevel)
	if err != nil {
		log.Fatalf("invalid -log: %v", err)
	}
	stream.SetLogWriters(writers)
	source.SetLogWriters(writers)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := runConfig{
		Source:        *sourceSpec,
		Method:        *method,
		Batch:         *batch,
		ConfigPath:    *configPath,
		DBPath:        *dbPath,
		OutPath:       *outPath,
		SaveDir:       *saveDir,
		Listen:        *listen,
		Hold:          *hold,
		SourceFPS:     *sourceFPS,
		UDPPort:       *udpPort,
		MinConfidence: *minConfidence,
		Pace:          *pace,
		Stdout:        os.Stdout,
	}
	stats, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("fallsense: %v", err)
	}
	log.Printf("run %s: %d frames read, %d samples, %d falls", stats.RunID, stats.FramesRead, stats.Emitted, stats.Falls)
}
