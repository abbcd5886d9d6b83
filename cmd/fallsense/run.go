package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/fallsense/internal/config"
	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/db"
	"github.com/banshee-data/fallsense/internal/monitor"
	"github.com/banshee-data/fallsense/internal/report"
	"github.com/banshee-data/fallsense/internal/source"
	"github.com/banshee-data/fallsense/internal/stream"
)

const defaultConfigHint = config.DefaultConfigPath

type runConfig struct {
	Source        string
	Method        string
	Batch         bool
	ConfigPath    string
	DBPath        string
	OutPath       string
	SaveDir       string
	Listen        string
	Hold          bool
	SourceFPS     float64
	UDPPort       int
	MinConfidence float64
	Pace          bool

	Stdout io.Writer
	Stdin  io.Reader
}

// loadConfig reads the explicit path, or the default file when it exists,
// or falls back to built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(config.DefaultConfigPath); err == nil {
		return config.Load(config.DefaultConfigPath)
	}
	return config.EmptyConfig(), nil
}

// pipelineOptions resolves driver options from the configuration and the
// command-line overrides.
func pipelineOptions(cfg *config.Config, rc runConfig) (stream.Options, error) {
	opts := cfg.PipelineOptions()
	if rc.Method != "" {
		m, err := cost.ParseMethod(rc.Method)
		if err != nil {
			return stream.Options{}, err
		}
		opts.Method = m
	}
	opts.Mode = stream.RealTime
	if rc.Batch {
		opts.Mode = stream.Batch
	}
	opts.Pace = rc.Pace
	opts.RunID = uuid.New().String()
	return opts, nil
}

type nopCloseWriter struct{ io.Writer }

func run(ctx context.Context, rc runConfig) (stream.Stats, error) {
	cfg, err := loadConfig(rc.ConfigPath)
	if err != nil {
		return stream.Stats{}, err
	}
	opts, err := pipelineOptions(cfg, rc)
	if err != nil {
		return stream.Stats{}, err
	}
	driver, err := stream.NewDriver(opts)
	if err != nil {
		return stream.Stats{}, err
	}
	threshold, _ := opts.Thresholds.For(opts.Method)

	src, err := source.Open(rc.Source, source.Options{
		Rate:    rc.SourceFPS,
		UDPPort: rc.UDPPort,
		Stdin:   rc.Stdin,
	})
	if err != nil {
		return stream.Stats{}, err
	}

	var sinks stream.MultiSink
	if rc.OutPath != "" {
		var w io.Writer
		if rc.OutPath == "-" {
			w = nopCloseWriter{rc.Stdout}
		} else {
			f, err := os.Create(rc.OutPath)
			if err != nil {
				src.Close()
				return stream.Stats{}, fmt.Errorf("create %s: %w", rc.OutPath, err)
			}
			w = f
		}
		sinks = append(sinks, stream.NewJSONLSink(w))
	}

	var store *db.DB
	if rc.DBPath != "" {
		store, err = db.Open(rc.DBPath)
		if err != nil {
			src.Close()
			return stream.Stats{}, err
		}
		defer store.Close()
		if err := store.CreateRun(db.Run{
			ID:        opts.RunID,
			Source:    rc.Source,
			Method:    opts.Method.String(),
			Mode:      opts.Mode.String(),
			Threshold: threshold,
			StartedAt: opts.Clock.Now(),
		}); err != nil {
			src.Close()
			return stream.Stats{}, err
		}
		sinks = append(sinks, store.NewSampleSink())
	}

	collector := &stream.Collector{}
	if rc.SaveDir != "" {
		sinks = append(sinks, collector)
	}

	var wg sync.WaitGroup
	serveCtx, stopServe := context.WithCancel(ctx)
	defer func() {
		stopServe()
		wg.Wait()
	}()
	if rc.Listen != "" {
		tracker := monitor.NewTracker(0)
		tracker.Begin(rc.Source, opts, threshold)
		sinks = append(sinks, tracker)
		ws, err := monitor.NewWebServer(monitor.Config{Address: rc.Listen, DB: store, Tracker: tracker})
		if err != nil {
			src.Close()
			return stream.Stats{}, err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(serveCtx); err != nil {
				log.Printf("monitor server: %v", err)
			}
		}()
	}

	det := source.RecordedDetector{MinConfidence: rc.MinConfidence}
	stats, runErr := driver.Run(ctx, src, det, sinks)

	if store != nil {
		if err := store.FinishRun(opts.RunID, stats, runErr); err != nil {
			log.Printf("failed to finish run %s: %v", opts.RunID, err)
		}
	}
	if runErr != nil {
		return stats, runErr
	}

	if rc.SaveDir != "" {
		if err := saveReport(rc.SaveDir, opts.Method, threshold, stats.RunID, collector.Records()); err != nil {
			return stats, err
		}
	}

	if rc.Listen != "" && rc.Hold && !stats.Canceled {
		log.Printf("stream ended; serving %s until interrupted", rc.Listen)
		<-ctx.Done()
	}
	return stats, nil
}

func saveReport(dir string, m cost.Method, threshold float64, runID string, recs []stream.Record) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	s := report.FromRecords(m, threshold, recs)
	base := filepath.Join(dir, fmt.Sprintf("%s-%s", m, shortID(runID)))
	if err := report.PlotCosts(base+".png", s, nil); err != nil {
		return err
	}
	f, err := os.Create(base + ".html")
	if err != nil {
		return fmt.Errorf("create %s.html: %w", base, err)
	}
	if err := report.HTMLComparison(f, []report.Series{s}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
