// Package api provides the local HTTP bridge to the activity engine:
// JSON commands, a server-sent-event notification stream and /metrics.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.olrik.dev/idlewatch/internal/activity"
)

// Engine is the part of the supervisor the bridge drives.
type Engine interface {
	Start()
	Stop()
	Pause() error
	Resume() error
	Reset()
	SetInactivityThreshold(time.Duration) error
	Snapshot() activity.Snapshot
}

// EventSource publishes engine notifications with replay.
type EventSource interface {
	SubscribeWithHistory(n int) (chan activity.Notification, []activity.Notification)
	Unsubscribe(ch chan activity.Notification)
}

// Server is the idlewatch HTTP bridge.
type Server struct {
	engine         Engine
	events         EventSource
	logger         *slog.Logger
	metricsEnabled bool
	heartbeat      time.Duration
}

// NewServer creates a new API server.
func NewServer(engine Engine, events EventSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:    engine,
		events:    events,
		logger:    logger,
		heartbeat: 15 * time.Second,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/activity", func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/", s.handleSnapshot)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
		r.Post("/pause", s.handlePause)
		r.Post("/resume", s.handleResume)
		r.Post("/reset", s.handleReset)
		r.Put("/threshold", s.handleThreshold)
	})

	r.Get("/api/events", s.handleEvents)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.engine.Start()
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Pause(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Resume(); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

const maxThresholdMs = int64(activity.MaxInactivityThreshold / time.Millisecond)

type thresholdRequest struct {
	ThresholdMs int64 `json:"threshold_ms"`
}

func (s *Server) handleThreshold(w http.ResponseWriter, r *http.Request) {
	var req thresholdRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if req.ThresholdMs > maxThresholdMs {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("threshold_ms must be at most %d", maxThresholdMs))
		return
	}

	if err := s.engine.SetInactivityThreshold(time.Duration(req.ThresholdMs) * time.Millisecond); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleEvents streams notifications as server-sent events. The optional
// "history" query parameter replays that many recent notifications.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	history := 0
	if v := r.URL.Query().Get("history"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "history must be a non-negative integer")
			return
		}
		history = n
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, replay := s.events.SubscribeWithHistory(history)
	defer s.events.Unsubscribe(ch)

	for _, n := range replay {
		if err := writeEvent(w, n); err != nil {
			return
		}
	}
	flusher.Flush()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, n); err != nil {
				s.logger.Debug("Event stream client disconnected", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE frame named after the notification type.
func writeEvent(w http.ResponseWriter, n activity.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Type, data)
	return err
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine sentinel errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activity.ErrNotTracking), errors.Is(err, activity.ErrNotPaused):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, activity.ErrInvalidThreshold):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
