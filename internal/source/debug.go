package source

import (
	"io"
	"log"
	"sync"

	"github.com/banshee-data/fallsense/internal/monitoring"
)

var (
	logMu       sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures the three logging streams for the source package.
// Pass nil for any writer to disable that stream.
func SetLogWriters(w monitoring.LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	opsLogger = newLogger("[source] ", w.Ops)
	diagLogger = newLogger("[source] ", w.Diag)
	traceLogger = newLogger("[source] ", w.Trace)
}

func newLogger(prefix string, w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, prefix, log.LstdFlags|log.Lmicroseconds)
}

func logf(l **log.Logger, format string, args ...interface{}) {
	logMu.RLock()
	lg := *l
	logMu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}

func opsf(format string, args ...interface{})   { logf(&opsLogger, format, args...) }
func diagf(format string, args ...interface{})  { logf(&diagLogger, format, args...) }
func tracef(format string, args ...interface{}) { logf(&traceLogger, format, args...) }
