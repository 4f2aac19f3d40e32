package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BackendState         *prometheus.GaugeVec     // Текущее состояние бэкенда (1=UP, 0.5=PROBING, 0=DOWN)
	BackendRequestsTotal *prometheus.CounterVec   // Количество запросов к бэкенду
	BackendLatency       *prometheus.HistogramVec // Латентность запросов к бэкенду
	BackendBytesRead     *prometheus.CounterVec   // Количество прочитанных байт
}

// NewMetrics создает метрики бэкенда. При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BackendState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "objgate_backend_state",
				Help: "Current state of a backend (1=UP, 0.5=PROBING, 0=DOWN)",
			},
			[]string{"backend"},
		),
		BackendRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_backend_requests_total",
				Help: "Total number of requests sent to backends",
			},
			[]string{"backend", "method", "code"},
		),
		BackendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "objgate_backend_latency_seconds",
				Help:    "Latency of requests to backends in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"backend", "method"},
		),
		BackendBytesRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_backend_bytes_read_total",
				Help: "Total number of bytes read from backends",
			},
			[]string{"backend"},
		),
	}
}
