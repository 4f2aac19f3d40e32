package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OutcomesTotal *prometheus.CounterVec   // Исходы обработки запросов
	OriginLatency prometheus.Histogram     // Время получения объекта из хранилища
	CacheLatency  *prometheus.HistogramVec // Время поиска в кэше по результату
}

// NewMetrics создает метрики движка. При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_engine_outcomes_total",
				Help: "Total number of handled requests by outcome",
			},
			[]string{"outcome"},
		),
		OriginLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "objgate_engine_origin_latency_seconds",
				Help:    "Time to obtain object metadata and body stream from the origin store",
				Buckets: prometheus.DefBuckets,
			},
		),
		CacheLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "objgate_engine_cache_lookup_latency_seconds",
				Help:    "Latency of edge cache lookups",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"result"},
		),
	}
}
