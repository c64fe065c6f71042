package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"simcli/internal/config"
)

// systemMetricsInterval is how often runtime stats are sampled while the
// diagnostics listener is running.
const systemMetricsInterval = 30 * time.Second

// DiagnosticsServer exposes health and Prometheus metrics endpoints while a
// long-running command executes. It is optional: commands only start it when
// a listen address is configured.
type DiagnosticsServer struct {
	server          *http.Server
	logger          *slog.Logger
	collector       *SystemMetricsCollector
	shutdownTimeout time.Duration
	startTime       time.Time
}

// NewDiagnosticsServer builds the diagnostics listener. The Prometheus
// handler is taken from the OpenTelemetry providers when metrics are enabled.
func NewDiagnosticsServer(cfg config.DiagnosticsConfig, providers *OTelProviders, logger *slog.Logger) (*DiagnosticsServer, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("diagnostics address is empty")
	}

	s := &DiagnosticsServer{
		logger:          WithComponent(logger, "diagnostics"),
		shutdownTimeout: cfg.ShutdownTimeout,
		startTime:       time.Now(),
	}

	if providers != nil && providers.Meter != nil {
		collector, err := NewSystemMetricsCollector(providers.Meter, systemMetricsInterval)
		if err != nil {
			return nil, fmt.Errorf("failed to create system metrics collector: %w", err)
		}
		s.collector = collector
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/healthz", s.handleHealthz)
		r.Get("/version", s.handleVersion)
	})

	if providers != nil && providers.PrometheusHTTP != nil {
		r.Handle("/metrics", providers.PrometheusHTTP)
	}

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start begins serving in the background. Errors other than a clean close are
// logged, not returned: diagnostics must never take down the main pipeline.
func (s *DiagnosticsServer) Start(ctx context.Context) {
	if s.collector != nil {
		go s.collector.Start(ctx)
	}

	go func() {
		s.logger.InfoContext(ctx, "Diagnostics listener started",
			slog.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "Diagnostics listener error",
				slog.String("error", err.Error()))
		}
	}()
}

// Stop gracefully shuts the listener down
func (s *DiagnosticsServer) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if s.collector != nil {
		s.collector.Stop()
	}

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("diagnostics shutdown error: %w", err)
	}

	s.logger.InfoContext(ctx, "Diagnostics listener stopped")
	return nil
}

func (s *DiagnosticsServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{
		"status":         "ok",
		"service":        ServiceName,
		"version":        ServiceVersion,
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	}

	if s.collector != nil {
		payload["system"] = s.collector.GetCurrentStats(r.Context()).FormatStats()
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, payload)
}

func (s *DiagnosticsServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{
		"service": ServiceName,
		"version": ServiceVersion,
	})
}
