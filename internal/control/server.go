// Package control exposes the hub's HTTP surface: health, status with a
// live timing report, Prometheus metrics, and manual switch triggers.
package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/e7canasta/video-hub/internal/platform/logger"
	"github.com/e7canasta/video-hub/internal/platform/metrics"
	"github.com/e7canasta/video-hub/internal/switcher"
	"github.com/e7canasta/video-hub/internal/timing"
)

// SampleCounters mirrors the tap counters without depending on the media
// graph package, so the server can be exercised with fakes.
type SampleCounters struct {
	Observed   uint64 `json:"observed"`
	Dropped    uint64 `json:"dropped"`
	MissingPTS uint64 `json:"missing_pts"`
}

// Status is the JSON body served on GET /status.
type Status struct {
	ActiveSource  int            `json:"active_source"`
	Sources       []string       `json:"sources"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Samples       SampleCounters `json:"samples"`
	Timing        *timing.Report `json:"timing"`
	TimingError   string         `json:"timing_error,omitempty"`
}

// Server wires the switcher, scheduler and recorder into HTTP handlers.
type Server struct {
	log      *slog.Logger
	met      *metrics.Metrics // may be nil
	sw       *switcher.Switcher
	sched    *switcher.Scheduler
	rec      *timing.Recorder
	counters func() SampleCounters // may be nil
	started  time.Time
}

// NewServer returns a control server. met and counters may be nil.
func NewServer(
	log *slog.Logger,
	met *metrics.Metrics,
	sw *switcher.Switcher,
	sched *switcher.Scheduler,
	rec *timing.Recorder,
	counters func() SampleCounters,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		log:      log,
		met:      met,
		sw:       sw,
		sched:    sched,
		rec:      rec,
		counters: counters,
		started:  time.Now(),
	}
}

// Router builds the chi router for the control surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.RequestLogger(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if s.met != nil {
		r.Get("/metrics", s.met.Handler().ServeHTTP)
	}
	r.Get("/status", s.getStatus)
	r.Post("/switch/next", s.switchNext)
	r.Post("/switch/{index}", s.switchTo)

	return r
}

// getStatus handles GET /status. The timing section is null, with a reason,
// when the retained window cannot support an analysis yet.
func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	status := Status{
		ActiveSource:  s.sw.ActiveIndex(),
		Sources:       s.sw.Sources(),
		UptimeSeconds: time.Since(s.started).Seconds(),
	}
	if s.counters != nil {
		status.Samples = s.counters()
	}

	if s.rec != nil {
		analysis, err := timing.Analyze(s.rec.Snapshot())
		if err != nil {
			status.TimingError = err.Error()
		} else {
			status.Timing = timing.Summarize(analysis)
		}
	}

	writeJSON(w, http.StatusOK, status)
}

// switchNext handles POST /switch/next: schedules an immediate round-robin
// cycle and returns without waiting for it.
func (s *Server) switchNext(w http.ResponseWriter, _ *http.Request) {
	s.sched.Kick()
	w.WriteHeader(http.StatusAccepted)
}

// switchTo handles POST /switch/{index}: a direct, synchronous switch to a
// specific source.
func (s *Server) switchTo(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.sw.Switch(index); err != nil {
		switch {
		case errors.Is(err, switcher.ErrSwitchInFlight):
			s.log.Info("control: switch rejected, another in flight", "target", index)
			w.WriteHeader(http.StatusConflict)
		case errors.Is(err, switcher.ErrEndpointUnavailable):
			s.log.Warn("control: switch target unavailable", "target", index)
			w.WriteHeader(http.StatusNotFound)
		default:
			s.log.Error("control: switch failed", "target", index, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"active_source": s.sw.ActiveIndex()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
