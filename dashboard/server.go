// Copyright 2020 Daniel Erat <dan@erat.org>.
// All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/derat/covidtraj/analysis"
	"github.com/derat/covidtraj/cache"
	"github.com/derat/covidtraj/infect"
	"github.com/derat/covidtraj/owid"
)

// status describes the currently-loaded dataset.
type status struct {
	Source    string        `json:"source"`
	Digest    string        `json:"digest"`
	Locations int           `json:"locations"`
	LoadedAt  time.Time     `json:"loaded_at"`
	Params    infect.Params `json:"params"`
	Horizon   int           `json:"horizon"`
}

// server holds the dashboard's data and serves its HTTP endpoints.
type server struct {
	workers int
	cache   *cache.Cache // may be nil
	metrics *metrics
	hub     *hub
	now     func() time.Time // injectable for tests

	mu     sync.RWMutex
	src    owid.Source
	est    *infect.Estimator
	frames map[string]*analysis.Frame
	names  []string
	stat   status

	reloadMu sync.Mutex // serializes reloads
	mux      *http.ServeMux
}

func newServer(src owid.Source, est *infect.Estimator, workers int, c *cache.Cache,
	reg *prometheus.Registry, broadcastInterval time.Duration) *server {
	s := &server{
		workers: workers,
		cache:   c,
		now:     time.Now,
		src:     src,
		est:     est,
		frames:  make(map[string]*analysis.Frame),
		mux:     http.NewServeMux(),
	}
	s.hub = newHub(s.status, broadcastInterval)
	s.metrics = newMetrics(reg, func() float64 { return float64(s.hub.count()) })

	s.mux.HandleFunc("/", s.index)
	s.mux.HandleFunc("/api/v1/status", s.handleStatus)
	s.mux.HandleFunc("/api/v1/locations", s.locations)
	s.mux.HandleFunc("/api/v1/trajectory", s.trajectory)
	s.mux.HandleFunc("/api/v1/grid", s.grid)
	s.mux.HandleFunc("/api/v1/scatter", s.scatter)
	s.mux.Handle("/ws/stream", s.hub)
	s.mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *server) status() status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stat
}

// setModel replaces the estimator and dataset source used by future reloads.
func (s *server) setModel(src owid.Source, est *infect.Estimator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src, s.est = src, est
}

// reload reads the dataset and recomputes all estimates. On failure the
// previously-loaded data is kept.
func (s *server) reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.mu.RLock()
	src, est := s.src, s.est
	s.mu.RUnlock()

	start := s.now()
	ds, err := owid.Load(ctx, src)
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		return err
	}
	opts := analysis.Options{
		Workers:  s.workers,
		OnLookup: s.metrics.observeLookup,
	}
	if s.cache != nil {
		opts.Store = s.cache
	}
	frames, err := analysis.Compute(ctx, est, ds, opts)
	if err != nil {
		s.metrics.reloads.WithLabelValues("error").Inc()
		return err
	}
	elapsed := s.now().Sub(start)
	s.metrics.reloadSeconds.Observe(elapsed.Seconds())
	s.metrics.reloads.WithLabelValues("ok").Inc()
	s.metrics.locations.Set(float64(len(frames)))

	if s.cache != nil {
		if n, err := s.cache.Prune(ctx, analysis.Keys(est, ds)); err != nil {
			slog.Warn("cache prune failed", "err", err)
		} else if n > 0 {
			slog.Info("pruned stale estimates", "count", n)
		}
	}

	st := status{
		Source:    src.Location,
		Digest:    ds.Digest,
		Locations: len(frames),
		LoadedAt:  s.now(),
		Params:    est.Params(),
		Horizon:   est.Horizon(),
	}
	s.mu.Lock()
	s.frames = frames
	s.names = ds.Names()
	s.stat = st
	s.mu.Unlock()

	slog.Info("dataset loaded", "source", src.Location, "locations", len(frames),
		"digest", ds.Digest, "elapsed", elapsed)
	s.hub.broadcast("dataset", st)
	return nil
}

// snapshot returns the current frames and location names.
// The returned values must not be modified.
func (s *server) snapshot() (map[string]*analysis.Frame, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames, s.names
}

// --- route handlers ---------------------------------------------------------

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	jsonResp(w, http.StatusOK, s.status())
}

func (s *server) locations(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	_, names := s.snapshot()
	if names == nil {
		names = []string{}
	}
	jsonResp(w, http.StatusOK, names)
}

// trajectory returns GET /api/v1/trajectory?location=...&var=...&res=...
func (s *server) trajectory(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	q := r.URL.Query()
	v, err := analysis.ParseVariable(queryDefault(q.Get("var"), string(analysis.NewCases)))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := analysis.ParseResolution(queryDefault(q.Get("res"), string(analysis.Daily)))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	frames, _ := s.snapshot()
	jsonResp(w, http.StatusOK, analysis.Trajectory(frames, q["location"], v, res))
}

// grid returns GET /api/v1/grid?location=...&res=...&scale=...
func (s *server) grid(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	q := r.URL.Query()
	res, err := analysis.ParseResolution(queryDefault(q.Get("res"), string(analysis.Daily)))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	sc, err := analysis.ParseScale(queryDefault(q.Get("scale"), string(analysis.Raw)))
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	frames, _ := s.snapshot()
	jsonResp(w, http.StatusOK, analysis.Grid(frames, q["location"], res, sc))
}

// scatter returns GET /api/v1/scatter?location=...&days=...&delay=...&scale=...&start=...&r=...
func (s *server) scatter(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	q := r.URL.Query()
	opts := analysis.DefaultScatterOptions()
	var err error
	if v := q.Get("days"); v != "" {
		if opts.Days, err = strconv.Atoi(v); err != nil || opts.Days < 1 {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid days %q", v))
			return
		}
	}
	if v := q.Get("delay"); v != "" {
		if opts.Delay, err = strconv.Atoi(v); err != nil || opts.Delay < 0 {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid delay %q", v))
			return
		}
	}
	if v := q.Get("scale"); v != "" {
		if opts.Scale, err = analysis.ParseScale(v); err != nil {
			jsonErr(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if v := q.Get("start"); v != "" {
		if opts.Start, err = time.Parse(owid.DateLayout, v); err != nil {
			jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid start %q", v))
			return
		}
	}
	switch v := analysis.RSource(q.Get("r")); v {
	case "":
	case analysis.ReportedR, analysis.EstimatedR:
		opts.R = v
	default:
		jsonErr(w, http.StatusBadRequest, fmt.Sprintf("invalid r %q", v))
		return
	}
	frames, _ := s.snapshot()
	jsonResp(w, http.StatusOK, analysis.Scatter(frames, q["location"], opts))
}

// --- helpers ----------------------------------------------------------------

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func queryDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed writing response", "err", err)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, map[string]string{"error": msg})
}
