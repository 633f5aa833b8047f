package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Значение метки route для запросов мимо зарегистрированных маршрутов;
// сырой URL в метку не попадает
const unmatchedRoute = "unmatched"

// PrometheusMiddleware считает запросы к админ-API генератора. Метка realm
// берётся из контекста, куда её кладёт разбор параметра :realm, поэтому
// длительность генерации колонок видна по мирам; для остальных маршрутов
// она пустая.
//
// В регистре появляются <ns>_http_request_duration_seconds{method,route,realm,status},
// <ns>_http_requests_inflight и <ns>_http_request_errors_total{method,route,status}.
type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
}

// NewPrometheusMiddleware регистрирует метрики в reg с пространством имён ns
func NewPrometheusMiddleware(ns string, reg prometheus.Registerer) *PrometheusMiddleware {
	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность запросов админ-API, включая генерацию колонок.",
			// Холодная колонка с декорированием заметно дольше чтения каталога
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route", "realm", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "http_requests_inflight",
			Help:      "Запросы админ-API в обработке.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_request_errors_total",
			Help:      "Ответы админ-API со статусом 4xx/5xx.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors)
	return pm
}

func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		defer pm.reqInflight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		pm.reqDuration.WithLabelValues(c.Request.Method, route, realmLabel(c), status).
			Observe(time.Since(start).Seconds())
		if code >= 400 {
			pm.reqErrors.WithLabelValues(c.Request.Method, route, status).Inc()
		}
	}
}

func realmLabel(c *gin.Context) string {
	v, ok := c.Get("realm")
	if !ok {
		return ""
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

// RegisterMetricsEndpoint вешает GET /metrics на gatherer генератора
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
