// Command compare runs every cost method over the same recording and writes
// side-by-side plots, an interactive chart and an optional JSON summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/banshee-data/fallsense/internal/config"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/monitoring"
	"github.com/banshee-data/fallsense/internal/report"
	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/stream"
)

var (
	sourceSpec = flag.String("source", "", "Recorded keypoint source (JSON-lines file or pcap:<path>)")
	configPath = flag.String("config", "", "JSON configuration file")
	outDir     = flag.String("out", "compare-out", "Output directory")
	fallStart  = flag.Int("fall-start", -1, "First sample index of the known fall (-1 = none)")
	fallEnd    = flag.Int("fall-end", -1, "Last sample index of the known fall")
	writeJSON  = flag.Bool("json", false, "Also write summary.json")
	sourceFPS  = flag.Float64("source-fps", 0, "Frame rate for recordings without a header")
	udpPort    = flag.Int("udp-port", source.DefaultUDPPort, "UDP port filter for pcap replays (0 = any)")
	realTime   = flag.Bool("real-time", false, "Use real-time rate handling instead of strict batch")
	logLevel   = flag.String("log", "off", "Pipeline log level: ops, diag, trace or off")
)

type compareConfig struct {
	Source    string
	Config    *config.Config
	RealTime  bool
	SourceFPS float64
	UDPPort   int
}

// compare replays the source once per method, concurrently, and returns
// the series in cost.Methods order.
func compare(ctx context.Context, cc compareConfig) ([]report.Series, error) {
	methods := cost.Methods()
	series := make([]report.Series, len(methods))
	errs := make([]error, len(methods))

	var wg sync.WaitGroup
	for i, m := range methods {
		wg.Add(1)
		go func(i int, m cost.Method) {
			defer wg.Done()
			series[i], errs[i] = runMethod(ctx, cc, m)
		}(i, m)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("%s: %w", methods[i], err)
		}
	}
	return series, nil
}

func runMethod(ctx context.Context, cc compareConfig, m cost.Method) (report.Series, error) {
	opts := cc.Config.PipelineOptions()
	opts.Method = m
	opts.Mode = stream.Batch
	if cc.RealTime {
		opts.Mode = stream.RealTime
	}
	threshold, ok := opts.Thresholds.For(m)
	if !ok {
		return report.Series{}, fmt.Errorf("no threshold configured")
	}
	d, err := stream.NewDriver(opts)
	if err != nil {
		return report.Series{}, err
	}
	src, err := source.Open(cc.Source, source.Options{Rate: cc.SourceFPS, UDPPort: cc.UDPPort})
	if err != nil {
		return report.Series{}, err
	}
	sink := &stream.Collector{}
	if _, err := d.Run(ctx, src, source.RecordedDetector{}, sink); err != nil {
		return report.Series{}, err
	}
	return report.FromRecords(m, threshold, sink.Records()), nil
}

// writeOutputs writes compare.png, compare.html and, when asked,
// summary.json into dir.
func writeOutputs(dir string, series []report.Series, span *report.FallSpan, withJSON bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := report.PlotComparison(filepath.Join(dir, "compare.png"), series, span); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "compare.html"), func(f *os.File) error {
		return report.HTMLComparison(f, series)
	}); err != nil {
		return err
	}
	if !withJSON {
		return nil
	}
	return writeFile(filepath.Join(dir, "summary.json"), func(f *os.File) error {
		return report.WriteSummaries(f, series, span)
	})
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	flag.Parse()
	if *sourceSpec == "" {
		log.Fatal("-source is required")
	}

	writers, err := monitoring.WritersForLevel(*logLevel, os.Stderr)
	if err != nil {
		log.Fatalf("invalid -log: %v", err)
	}
	stream.SetLogWriters(writers)
	source.SetLogWriters(writers)

	cfg := config.EmptyConfig()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	series, err := compare(ctx, compareConfig{
		Source:    *sourceSpec,
		Config:    cfg,
		RealTime:  *realTime,
		SourceFPS: *sourceFPS,
		UDPPort:   *udpPort,
	})
	if err != nil {
		log.Fatalf("compare failed: %v", err)
	}

	var span *report.FallSpan
	if *fallStart >= 0 {
		span = &report.FallSpan{Start: *fallStart, End: *fallEnd}
		if !span.Valid() {
			log.Fatalf("invalid fall span %d..%d", *fallStart, *fallEnd)
		}
	}
	if err := writeOutputs(*outDir, series, span, *writeJSON); err != nil {
		log.Fatalf("failed to write outputs: %v", err)
	}
	for _, s := range series {
		sum := report.Summarize(s, span)
		log.Printf("%-15s samples=%d falls=%d max=%.3f threshold=%g", s.Method, sum.Samples, sum.Falls, sum.MaxSmoothed, s.Threshold)
	}
	log.Printf("wrote %s", *outDir)
}
