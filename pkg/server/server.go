package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skyqueue/obs-scheduler/pkg/core/model"
	"github.com/skyqueue/obs-scheduler/pkg/core/observation"
	"github.com/skyqueue/obs-scheduler/pkg/core/priority"
	"github.com/skyqueue/obs-scheduler/pkg/core/services"
	"github.com/skyqueue/obs-scheduler/pkg/db"
	"github.com/skyqueue/obs-scheduler/pkg/metrics"
)

// Options holds the dependencies of the HTTP API
type Options struct {
	Database       db.Database
	Table          *priority.Table
	Metrics        *metrics.Recorder
	Logger         *zap.Logger
	TimeslotLength float64

	// TickRate and TickBurst bound POST /ticks; default 5/s with a burst of 10
	TickRate  rate.Limit
	TickBurst int
}

// Server exposes band curves, stored observations, ranking records and ticks over HTTP
type Server struct {
	opts   Options
	router chi.Router

	// tickMu serializes ticks so used time is never credited from a stale read
	tickMu      sync.Mutex
	tickLimiter *rate.Limiter
}

// CurveRow is one band of the curve table
type CurveRow struct {
	Band        model.Band `json:"band"`
	M1          float64    `json:"m1"`
	B1          float64    `json:"b1"`
	M2          float64    `json:"m2"`
	B2          float64    `json:"b2"`
	XB          float64    `json:"xb"`
	XB0         float64    `json:"xb0"`
	XC0         float64    `json:"xc0"`
	MaxPriority float64    `json:"maxPriority"`
}

// TickResponse is the JSON form of a tick result
type TickResponse struct {
	RunID     string       `json:"runId"`
	Timeslot  int          `json:"timeslot"`
	Objective float64      `json:"objective"`
	Ranked    []RankedItem `json:"ranked"`
}

// RankedItem is one ranked observation in a TickResponse
type RankedItem struct {
	Rank          int     `json:"rank"`
	ObservationID string  `json:"observationId"`
	Band          string  `json:"band"`
	Completion    float64 `json:"completion"`
	Priority      float64 `json:"priority"`
	Site          string  `json:"site,omitempty"`
	Description   string  `json:"description"`
}

// New builds the server and its routes
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Table == nil {
		opts.Table = priority.Default()
	}

	if opts.TickRate == 0 {
		opts.TickRate = 5
	}
	if opts.TickBurst == 0 {
		opts.TickBurst = 10
	}

	s := &Server{
		opts:        opts,
		tickLimiter: rate.NewLimiter(opts.TickRate, opts.TickBurst),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/curves", s.handleCurves)
	r.Get("/observations", s.handleObservations)
	r.Get("/runs/{runID}/priorities", s.handlePriorities)
	r.Post("/ticks/{timeslot}", s.handleTick)

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry(), promhttp.HandlerOpts{}))
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.opts.Logger.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleCurves(w http.ResponseWriter, r *http.Request) {
	rows := make([]CurveRow, 0, len(model.Bands))
	for _, band := range model.Bands {
		p := s.opts.Table.ParametersFor(band)
		rows = append(rows, CurveRow{
			Band:        band,
			M1:          p.M1,
			B1:          p.B1,
			M2:          p.M2,
			B2:          p.B2,
			XB:          p.XB,
			XB0:         p.XB0,
			XC0:         p.XC0,
			MaxPriority: s.opts.Table.MaxPriority(band),
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	observations, err := s.opts.Database.GetObservations(r.Context())
	if err != nil {
		s.opts.Logger.Error("Failed to fetch observations", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch observations")
		return
	}
	writeJSON(w, http.StatusOK, observations)
}

func (s *Server) handlePriorities(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	records, err := s.opts.Database.GetPriorityRecords(r.Context(), runID)
	if err != nil {
		s.opts.Logger.Error("Failed to fetch priority records", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch priority records")
		return
	}
	if len(records) == 0 {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if !s.tickLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "too many tick requests")
		return
	}

	timeslot, err := strconv.Atoi(chi.URLParam(r, "timeslot"))
	if err != nil || timeslot < 0 {
		writeError(w, http.StatusBadRequest, "timeslot must be a non-negative integer")
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))

	s.tickMu.Lock()
	result, err := services.RunTick(r.Context(), services.TickParams{
		Database:       s.opts.Database,
		Table:          s.opts.Table,
		Metrics:        s.opts.Metrics,
		Logger:         s.opts.Logger,
		Timeslot:       timeslot,
		TimeslotLength: s.opts.TimeslotLength,
		DryRun:         dryRun,
	})
	s.tickMu.Unlock()
	if errors.Is(err, observation.ErrInvalidObservation) {
		s.opts.Logger.Warn("Tick rejected stored observation", zap.Int("timeslot", timeslot), zap.Error(err))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.opts.Logger.Error("Tick failed", zap.Int("timeslot", timeslot), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "tick failed")
		return
	}

	writeJSON(w, http.StatusOK, toTickResponse(result))
}

func toTickResponse(result *services.TickResult) TickResponse {
	resp := TickResponse{
		RunID:     result.RunID,
		Timeslot:  result.Timeslot,
		Objective: result.Plan.Objective,
		Ranked:    make([]RankedItem, 0, len(result.Ranked)),
	}
	for _, r := range result.Ranked {
		resp.Ranked = append(resp.Ranked, RankedItem{
			Rank:          r.Rank,
			ObservationID: r.ObservationID,
			Band:          string(r.Band),
			Completion:    r.Completion,
			Priority:      r.Priority,
			Site:          r.Site,
			Description:   r.Description,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
