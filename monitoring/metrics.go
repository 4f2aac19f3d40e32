package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics - метрики процесса, не относящиеся к конкретному модулю
type Metrics struct {
	BuildInfo     *prometheus.GaugeVec // Версия сборки, значение всегда 1
	StartTime     prometheus.Gauge     // Время запуска процесса (unix)
	ShuttingDown  prometheus.Gauge     // 1 во время graceful shutdown
	PendingWrites prometheus.GaugeFunc // Незавершенные фоновые записи в кэш
}

// NewRegistry создает registry приложения. Все модули регистрируют свои
// метрики в нем, а не в default registry.
func NewRegistry(config *Config) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if config != nil && config.EnableSystemMetrics {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// NewMetrics создает метрики процесса. pending может быть nil.
// При reg == nil метрики не регистрируются.
func NewMetrics(reg prometheus.Registerer, version string, pending func() int64) *Metrics {
	factory := promauto.With(reg)

	if pending == nil {
		pending = func() int64 { return 0 }
	}

	m := &Metrics{
		BuildInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "objgate_build_info",
				Help: "Build information, the value is always 1",
			},
			[]string{"version"},
		),
		StartTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "objgate_start_time_seconds",
				Help: "Unix time the gateway process started",
			},
		),
		ShuttingDown: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "objgate_shutting_down",
				Help: "1 while the gateway is shutting down",
			},
		),
		PendingWrites: factory.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "objgate_background_tasks_pending",
				Help: "Number of background cache writes not yet finished",
			},
			func() float64 { return float64(pending()) },
		),
	}

	m.BuildInfo.WithLabelValues(version).Set(1)
	m.StartTime.Set(float64(time.Now().Unix()))

	return m
}
