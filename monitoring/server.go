package monitoring

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"objgate/logger"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker сообщает, доступен ли источник объектов.
// Реализуется backend.Manager.
type ReadinessChecker interface {
	IsLive() bool
}

// Server представляет HTTP сервер для экспорта метрик Prometheus и health check
type Server struct {
	config       *Config
	server       *http.Server
	handler      http.Handler
	readiness    ReadinessChecker
	shuttingDown atomic.Bool
}

// NewServer создает новый сервер метрик. readiness может быть nil,
// тогда готовность зависит только от состояния shutdown.
func NewServer(config *Config, gatherer prometheus.Gatherer, readiness ReadinessChecker) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:    config,
		readiness: readiness,
	}

	metricsPath := config.MetricsPath
	if metricsPath == "" {
		metricsPath = DefaultConfig().MetricsPath
	}

	r := chi.NewRouter()
	r.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/health/live", s.liveHealthHandler)
	r.Get("/health/ready", s.readyHealthHandler)
	s.handler = r

	return s
}

// Handler возвращает роутер сервера
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start запускает HTTP сервер для метрик
func (s *Server) Start() error {
	if !s.config.Enabled {
		logger.Info("Monitoring is disabled, skipping metrics server start")
		return nil
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.ListenAddress, err)
	}

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		logger.Info("Metrics server listening on %s%s", ln.Addr(), s.config.MetricsPath)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed: %v", err)
		}
	}()

	return nil
}

// Stop останавливает HTTP сервер метрик
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	logger.Info("Stopping metrics server...")
	return s.server.Shutdown(ctx)
}

// SetShuttingDown переводит /health/ready в состояние 503
func (s *Server) SetShuttingDown() {
	s.shuttingDown.Store(true)
}

// liveHealthHandler обрабатывает запросы /health/live
func (s *Server) liveHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}

// readyHealthHandler обрабатывает запросы /health/ready
func (s *Server) readyHealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.shuttingDown.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"shutting down"}`)
		return
	}

	if s.readiness != nil && !s.readiness.IsLive() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"origin down"}`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok"}`)
}
