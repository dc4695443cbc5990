// Package http exposes the gateway's API surface: the alert bundle
// endpoint, the event-type listing, and the health/readiness/metrics
// routes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/nws-alert-gateway/internal/domain"
	"github.com/couchcryptid/nws-alert-gateway/internal/pipeline"
)

// AlertProvider serves alert bundles. refresh forces a fresh upstream
// cycle instead of the snapshot fast path.
type AlertProvider interface {
	Get(ctx context.Context, refresh bool) (pipeline.Result, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the alert API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	alerts     AlertProvider
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, alerts AlertProvider, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		alerts: alerts,
		logger: logger,
	}

	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/event-types", s.handleEventTypes)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type alertsResponse struct {
	Alerts         []domain.Alert     `json:"alerts"`
	ZoneGeometries domain.GeometryMap `json:"zoneGeometries"`
	TotalCount     int                `json:"totalCount"`
	Meta           responseMeta       `json:"meta"`
}

type responseMeta struct {
	Cached    bool       `json:"cached"`
	Stale     bool       `json:"stale,omitempty"`
	FetchedAt *time.Time `json:"fetchedAt,omitempty"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	refresh := q.Get("refresh") == "1"

	res, err := s.alerts.Get(r.Context(), refresh)
	if err != nil {
		s.writeAlertsError(w, err)
		return
	}

	alerts := filterFromQuery(q).Apply(res.Snapshot.Alerts)

	resp := alertsResponse{
		Alerts:         alerts,
		ZoneGeometries: res.Snapshot.Geometry,
		TotalCount:     res.Snapshot.TotalCount,
		Meta: responseMeta{
			Cached: res.Cached,
			Stale:  res.Stale,
		},
	}
	if resp.Alerts == nil {
		resp.Alerts = []domain.Alert{}
	}
	if resp.ZoneGeometries == nil {
		resp.ZoneGeometries = domain.GeometryMap{}
	}
	if !res.Snapshot.FetchedAt.IsZero() {
		resp.Meta.FetchedAt = &res.Snapshot.FetchedAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// filterFromQuery builds a display filter from request parameters.
// severity and event may repeat; region matches UGC state prefix or area
// description; q is case-insensitive free text.
func filterFromQuery(q url.Values) domain.Filter {
	f := domain.Filter{
		Region:  q.Get("region"),
		Keyword: q.Get("q"),
	}
	if sevs := q["severity"]; len(sevs) > 0 {
		f.Severities = make(map[domain.Severity]struct{}, len(sevs))
		for _, s := range sevs {
			f.Severities[domain.Severity(s)] = struct{}{}
		}
	}
	if events := q["event"]; len(events) > 0 {
		f.EventTypes = make(map[string]struct{}, len(events))
		for _, e := range events {
			f.EventTypes[e] = struct{}{}
		}
	}
	return f
}

func (s *Server) handleEventTypes(w http.ResponseWriter, r *http.Request) {
	res, err := s.alerts.Get(r.Context(), false)
	if err != nil {
		s.writeAlertsError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{
		"eventTypes": domain.EventTypes(res.Snapshot.Alerts),
	})
}

func (s *Server) writeAlertsError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrNoData) {
		s.logger.Warn("serving 503, no alert data available", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "alert data unavailable",
		})
		return
	}
	s.logger.Error("alert request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
