package apigw

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Общие метрики запросов
	RequestsTotal  *prometheus.CounterVec   // Общее количество обработанных запросов
	RequestLatency *prometheus.HistogramVec // Латентность запросов
	BytesSent      prometheus.Counter       // Отправленные байты тел ответов
	InFlight       prometheus.Gauge         // Запросы в обработке
}

// NewMetrics создает метрики шлюза. При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_apigw_requests_total",
				Help: "Total number of processed HTTP requests",
			},
			[]string{"method", "code"},
		),
		RequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "objgate_apigw_request_latency_seconds",
				Help:    "Latency of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets, // Стандартные бакеты времени
			},
			[]string{"method"},
		),
		BytesSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "objgate_apigw_bytes_sent_total",
				Help: "Total number of response body bytes sent to clients",
			},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "objgate_apigw_requests_in_flight",
				Help: "Number of requests currently being served",
			},
		),
	}
}
