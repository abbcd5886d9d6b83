// Package monitor serves stored and in-progress fall-detection runs over
// HTTP: JSON APIs, echarts cost charts and the database debug console.
package monitor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/fallsense/internal/cost"
	"github.com/banshee-data/fallsense/internal/db"
	"github.com/banshee-data/fallsense/internal/httputil"
	"github.com/banshee-data/fallsense/internal/report"
)

// Config configures a WebServer. DB and Tracker are both optional; routes
// that need a missing one reply 404.
type Config struct {
	Address string
	DB      *db.DB
	Tracker *Tracker
}

// WebServer is the monitoring HTTP server.
type WebServer struct {
	address string
	db      *db.DB
	tracker *Tracker
	server  *http.Server
}

// NewWebServer builds the server and its routes.
func NewWebServer(cfg Config) (*WebServer, error) {
	ws := &WebServer{
		address: cfg.Address,
		db:      cfg.DB,
		tracker: cfg.Tracker,
	}
	mux, err := ws.setupRoutes()
	if err != nil {
		return nil, err
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws, nil
}

// Handler returns the root handler, mainly for tests.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start serves until ctx is canceled and then shuts down. It returns early
// with an error if the listener cannot be opened.
func (ws *WebServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ws.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", ws.address, err)
	}
	return ws.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (ws *WebServer) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("[monitor] serving on http://%s", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[monitor] shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("[monitor] force close error: %v", err)
		}
	}
	log.Printf("[monitor] stopped")
	return nil
}

func (ws *WebServer) setupRoutes() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", ws.handleStatus)
	mux.HandleFunc("/api/runs", ws.handleRuns)
	mux.HandleFunc("/api/runs/{id}", ws.handleRun)
	mux.HandleFunc("/api/runs/{id}/samples", ws.handleSamples)
	mux.HandleFunc("/charts/run", ws.handleRunChart)
	mux.HandleFunc("/charts/live", ws.handleLiveChart)
	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}
	return mux, nil
}

func requireGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httputil.MethodNotAllowed(w, http.MethodGet, http.MethodHead)
		return false
	}
	return true
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.tracker == nil {
		httputil.NotFound(w, "no live run")
		return
	}
	httputil.WriteJSONOK(w, ws.tracker.Status())
}

func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			httputil.BadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := ws.db.Runs(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, runs)
}

func (ws *WebServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	run, err := ws.db.Run(r.PathValue("id"))
	if err != nil {
		ws.writeLookupError(w, err)
		return
	}
	httputil.WriteJSONOK(w, run)
}

func (ws *WebServer) handleSamples(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	samples, err := ws.db.Samples(r.PathValue("id"))
	if err != nil {
		ws.writeLookupError(w, err)
		return
	}
	if samples == nil {
		httputil.WriteJSONOK(w, []struct{}{})
		return
	}
	httputil.WriteJSONOK(w, samples)
}

func (ws *WebServer) writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

// handleRunChart renders the smoothed cost of a stored run against its
// threshold.
func (ws *WebServer) handleRunChart(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.db == nil {
		httputil.NotFound(w, "no database configured")
		return
	}
	id := r.URL.Query().Get("run_id")
	if id == "" {
		httputil.BadRequest(w, "missing run_id")
		return
	}
	run, err := ws.db.Run(id)
	if err != nil {
		ws.writeLookupError(w, err)
		return
	}
	samples, err := ws.db.Samples(id)
	if err != nil {
		ws.writeLookupError(w, err)
		return
	}
	m, err := cost.ParseMethod(run.Method)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	s := report.FromRecords(m, run.Threshold, samples)
	subtitle := fmt.Sprintf("run=%s source=%s falls=%d", run.ID, run.Source, run.Falls)
	writeChart(w, report.CostChart(s, subtitle))
}

func (ws *WebServer) handleLiveChart(w http.ResponseWriter, r *http.Request) {
	if !requireGet(w, r) {
		return
	}
	if ws.tracker == nil {
		httputil.NotFound(w, "no live run")
		return
	}
	st := ws.tracker.Status()
	s := report.FromRecords(st.Method, st.Threshold, ws.tracker.Recent())
	subtitle := fmt.Sprintf("run=%s emitted=%d falls=%d", st.RunID, st.Emitted, st.Falls)
	writeChart(w, report.CostChart(s, subtitle))
}

type renderer interface {
	Render(w io.Writer) error
}

func writeChart(w http.ResponseWriter, c renderer) {
	var buf bytes.Buffer
	if err := c.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
