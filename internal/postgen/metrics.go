package postgen

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики очереди финализации.
// Все методы безопасны для nil.
type Metrics struct {
	enqueued  *prometheus.CounterVec
	dropped   *prometheus.CounterVec
	finalized prometheus.Counter
	failed    prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skygrid",
			Subsystem: "postgen",
			Name:      "enqueued_total",
			Help:      "Запросы на финализацию, поставленные в очередь.",
		}, []string{"backend", "realm"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skygrid",
			Subsystem: "postgen",
			Name:      "dropped_total",
			Help:      "Запросы, потерянные из-за ошибок бэкенда или переполнения буфера.",
		}, []string{"backend"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skygrid",
			Subsystem: "postgen",
			Name:      "finalized_total",
			Help:      "Успешно обработанные запросы.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "skygrid",
			Subsystem: "postgen",
			Name:      "failed_total",
			Help:      "Запросы, обработка которых завершилась ошибкой.",
		}),
	}
	reg.MustRegister(m.enqueued, m.dropped, m.finalized, m.failed)
	return m
}

func (m *Metrics) incEnqueued(backend string, realm int) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(backend, strconv.Itoa(realm)).Inc()
}

func (m *Metrics) incDropped(backend string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(backend).Inc()
}

func (m *Metrics) observeResult(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.Inc()
		return
	}
	m.finalized.Inc()
}
