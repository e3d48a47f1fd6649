// Package status serves a read-only view of the monitor over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"

	"github.com/yourneighborhoodchef/pokerestock/internal/monitor"
	"github.com/yourneighborhoodchef/pokerestock/internal/notify"
	"github.com/yourneighborhoodchef/pokerestock/internal/state"
)

type HealthSource interface {
	Health() monitor.Health
}

type StateSource interface {
	Snapshot() []state.Entry
}

type AlertSource interface {
	Recent(ctx context.Context, limit int) ([]notify.Message, error)
}

// Handler exposes /healthz, /state and /alerts. Nothing here mutates state or triggers checks.
type Handler struct {
	health HealthSource
	state  StateSource
	alerts AlertSource
}

// NewHandler builds a handler. alerts may be nil when the journal is disabled.
func NewHandler(health HealthSource, st StateSource, alerts AlertSource) *Handler {
	return &Handler{health: health, state: st, alerts: alerts}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Get("/state", h.snapshot)
	r.Get("/alerts", h.recentAlerts)
}

// NewRouter mounts h with the standard middleware.
func NewRouter(h *Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	h.RegisterRoutes(router)
	return router
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	hl := h.health.Health()
	code := http.StatusOK
	if hl.Stale {
		code = http.StatusServiceUnavailable
	}
	respond(w, code, hl)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) recentAlerts(w http.ResponseWriter, r *http.Request) {
	if h.alerts == nil {
		http.Error(w, "alert journal disabled", http.StatusNotFound)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	alerts, err := h.alerts.Recent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []notify.Message{}
	}
	respond(w, http.StatusOK, alerts)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Server runs the status router until Shutdown.
type Server struct {
	srv *http.Server
}

func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// ListenAndServe blocks until the server stops. A clean Shutdown returns nil.
func (s *Server) ListenAndServe() error {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
