// Package httpapi exposes the published sensor surface, the widget, and the
// service health endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/cfa-fire-forecast/internal/sensor"
	"github.com/couchcryptid/cfa-fire-forecast/internal/widget"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RecordSource provides read access to published sensor records.
type RecordSource interface {
	Get(slug string) (sensor.Record, bool)
	Snapshot() []sensor.Record
}

// WidgetConfig carries the widget display options.
type WidgetConfig struct {
	Title         string
	ShowStatusDot bool
	SensorPrefix  string
}

// Server exposes sensor state, the widget, health, readiness, and metrics.
type Server struct {
	httpServer *http.Server
	records    RecordSource
	widgetCfg  WidgetConfig
	logger     *slog.Logger
}

// NewServer creates an HTTP server with API, widget, and observability routes.
func NewServer(addr string, records RecordSource, ready ReadinessChecker, widgetCfg WidgetConfig, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		records:   records,
		widgetCfg: widgetCfg,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/districts", s.handleDistricts)
	mux.HandleFunc("GET /api/districts/{slug}", s.handleDistrict)
	mux.HandleFunc("GET /widget", s.handleWidget)

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

func (s *Server) handleDistricts(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.records.Snapshot())
}

func (s *Server) handleDistrict(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	record, ok := s.records.Get(slug)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no published record for district " + slug,
		})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleWidget(w http.ResponseWriter, _ *http.Request) {
	data := widget.Build(
		s.widgetCfg.Title,
		s.widgetCfg.ShowStatusDot,
		s.widgetCfg.SensorPrefix,
		s.records.Snapshot(),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := widget.Render(w, data); err != nil {
		s.logger.Error("widget render failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
