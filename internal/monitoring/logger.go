// Package monitoring holds the logging plumbing shared by the pipeline
// packages. Each package owns three streams (ops, diag, trace) and accepts a
// LogWriters value to configure them.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// EnvDebugLog names the environment variable consulted when no -log flag is
// given. It accepts the same values as WritersForLevel.
const EnvDebugLog = "FALLSENSE_DEBUG_LOG"

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// Logf is the package-level diagnostic logger used outside the pipeline
// packages (migrations, web handlers). Defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// WritersForLevel maps a verbosity name to stream writers. Levels are
// cumulative: "diag" enables ops and diag, "trace" enables all three.
// "off" or "none" disables everything.
func WritersForLevel(level string, w io.Writer) (LogWriters, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "ops":
		return LogWriters{Ops: w}, nil
	case "diag":
		return LogWriters{Ops: w, Diag: w}, nil
	case "trace", "all":
		return LogWriters{Ops: w, Diag: w, Trace: w}, nil
	case "off", "none":
		return LogWriters{}, nil
	default:
		return LogWriters{}, fmt.Errorf("unknown log level %q (want ops, diag, trace or off)", level)
	}
}

// WritersFromEnv resolves the level from flagLevel, falling back to
// FALLSENSE_DEBUG_LOG, and writes to stderr.
func WritersFromEnv(flagLevel string) (LogWriters, error) {
	level := flagLevel
	if level == "" {
		level = os.Getenv(EnvDebugLog)
	}
	return WritersForLevel(level, os.Stderr)
}
