package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LookupsTotal *prometheus.CounterVec // Поиски в кэше по результату (hit/miss/error)
	WritesTotal  *prometheus.CounterVec // Записи в кэш по результату (stored/skipped/error)
	Entries      prometheus.Gauge       // Количество записей (только memory)
	SizeBytes    prometheus.Gauge       // Суммарный размер записей (только memory)
}

// NewMetrics создает метрики кэша. При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_cache_lookups_total",
				Help: "Total number of edge cache lookups",
			},
			[]string{"result"},
		),
		WritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "objgate_cache_writes_total",
				Help: "Total number of edge cache writes",
			},
			[]string{"result"},
		),
		Entries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "objgate_cache_entries",
				Help: "Current number of entries in the memory cache",
			},
		),
		SizeBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "objgate_cache_size_bytes",
				Help: "Current memory cache size in bytes",
			},
		),
	}
}
