package lattice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики генератора. Методы безопасны для nil.
type Metrics struct {
	columns   *prometheus.CounterVec
	failures  *prometheus.CounterVec
	placed    *prometheus.CounterVec
	overlays  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	deferred  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skygrid",
			Subsystem: "lattice",
			Name:      name,
			Help:      help,
		}, []string{"realm"})
	}

	m := &Metrics{
		columns:   counter("columns_generated_total", "Сгенерированные колонки."),
		failures:  counter("column_failures_total", "Колонки, не сгенерированные из-за отсутствия данных хоста."),
		placed:    counter("lattice_blocks_total", "Поставленные блоки решётки."),
		overlays:  counter("overlay_blocks_total", "Поставленные блоки-надстройки."),
		fallbacks: counter("fallback_blocks_total", "Позиции, заполненные блоком-заглушкой."),
		deferred:  counter("deferred_requests_total", "Запросы на отложенную финализацию."),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skygrid",
			Subsystem: "lattice",
			Name:      "generation_duration_seconds",
			Help:      "Длительность генерации одной колонки.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"realm"}),
	}

	reg.MustRegister(m.columns, m.failures, m.placed, m.overlays, m.fallbacks, m.deferred, m.duration)
	return m
}

func (m *Metrics) observe(realm string, st fillStats, took time.Duration) {
	if m == nil {
		return
	}
	m.columns.WithLabelValues(realm).Inc()
	m.placed.WithLabelValues(realm).Add(float64(st.placed))
	m.overlays.WithLabelValues(realm).Add(float64(st.overlays))
	m.fallbacks.WithLabelValues(realm).Add(float64(st.fallbacks))
	m.deferred.WithLabelValues(realm).Add(float64(st.deferred))
	m.duration.WithLabelValues(realm).Observe(took.Seconds())
}

func (m *Metrics) failure(realm string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(realm).Inc()
}
