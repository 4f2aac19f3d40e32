package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"objgate/logger"

	"github.com/prometheus/client_golang/prometheus"
)

// Monitor представляет основной интерфейс модуля мониторинга
type Monitor struct {
	config  *Config
	server  *Server
	metrics *Metrics
}

// New создает новый экземпляр Monitor. gatherer - registry приложения,
// metrics и readiness могут быть nil.
func New(config *Config, gatherer prometheus.Gatherer, metrics *Metrics, readiness ReadinessChecker) (*Monitor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitoring config: %w", err)
	}

	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	monitor := &Monitor{
		config:  config,
		server:  NewServer(config, gatherer, readiness),
		metrics: metrics,
	}

	logger.Info("Monitoring module initialized")
	logger.Debug("Monitoring config: enabled=%v, listen=%s, path=%s",
		config.Enabled, config.ListenAddress, config.MetricsPath)

	return monitor, nil
}

// Start запускает модуль мониторинга
func (m *Monitor) Start() error {
	if !m.config.Enabled {
		logger.Info("Monitoring is disabled")
		return nil
	}

	if err := m.server.Start(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	logger.Info("Monitoring module started successfully")
	return nil
}

// SetShuttingDown отмечает начало graceful shutdown
func (m *Monitor) SetShuttingDown() {
	m.server.SetShuttingDown()
	if m.metrics != nil {
		m.metrics.ShuttingDown.Set(1)
	}
}

// Stop останавливает модуль мониторинга
func (m *Monitor) Stop(ctx context.Context) error {
	if !m.config.Enabled {
		return nil
	}

	if err := m.server.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop metrics server: %w", err)
	}

	logger.Info("Monitoring module stopped")
	return nil
}

// Handler возвращает HTTP обработчик метрик и health check
func (m *Monitor) Handler() http.Handler {
	return m.server.Handler()
}

// GetConfig возвращает конфигурацию мониторинга
func (m *Monitor) GetConfig() *Config {
	return m.config
}

// IsEnabled возвращает true, если мониторинг включен
func (m *Monitor) IsEnabled() bool {
	return m.config.Enabled
}
