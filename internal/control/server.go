// Package control exposes the daemon's HTTP surface: manual refresh,
// status, schedule changes, cleanup, health and metrics.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/Ayushi40804/visualize-ocean/internal/domain"
	"github.com/Ayushi40804/visualize-ocean/internal/refresh"
	"github.com/Ayushi40804/visualize-ocean/internal/store"
)

// Server is the control-plane HTTP server.
type Server struct {
	httpServer  *http.Server
	coordinator *refresh.Coordinator
	scheduler   *refresh.Scheduler
	store       store.MeasurementStore
}

// NewServer wires the control routes onto addr.
func NewServer(addr string, coordinator *refresh.Coordinator, scheduler *refresh.Scheduler, st store.MeasurementStore) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// No WriteTimeout: a synchronous refresh can legitimately run
			// for minutes.
			ReadTimeout: 10 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
		coordinator: coordinator,
		scheduler:   scheduler,
		store:       st,
	}

	mux.HandleFunc("POST /api/v1/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/freshness", s.handleFreshness)
	mux.HandleFunc("POST /api/v1/schedule", s.handleSchedule)
	mux.HandleFunc("POST /api/v1/cleanup", s.handleCleanup)
	mux.HandleFunc("POST /api/v1/reset", s.handleReset)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("Control server starting")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleRefresh runs a refresh synchronously and returns its summary.
// 409 when a run is already in flight.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.coordinator.Refresh(r.Context())
	if errors.Is(err, domain.ErrAlreadyRunning) {
		writeError(w, http.StatusConflict, "a refresh run is already in progress")
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"refresh":        s.coordinator.Status(),
		"interval_hours": s.scheduler.Interval().Hours(),
	})
}

type scheduleRequest struct {
	IntervalHours float64 `json:"interval_hours"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IntervalHours <= 0 {
		writeError(w, http.StatusBadRequest, "interval_hours must be positive")
		return
	}
	interval := time.Duration(req.IntervalHours * float64(time.Hour))
	if err := s.scheduler.Reschedule(r.Context(), interval); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"interval_hours": req.IntervalHours})
}

type cleanupRequest struct {
	RetentionDays int `json:"retention_days"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RetentionDays <= 0 {
		writeError(w, http.StatusBadRequest, "retention_days must be positive")
		return
	}
	removed, err := s.coordinator.Cleanup(time.Duration(req.RetentionDays) * 24 * time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

// handleFreshness reports store totals, the backing data for a
// real-vs-sample indicator.
func (s *Server) handleFreshness(w http.ResponseWriter, r *http.Request) {
	freshness, err := s.store.QueryFreshness(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, freshness)
}

// handleReset clears the measurement store. Requires an explicit
// confirmation field so the endpoint cannot be tripped by accident.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Confirm bool `json:"confirm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Confirm {
		writeError(w, http.StatusBadRequest, `reset requires {"confirm": true}`)
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
