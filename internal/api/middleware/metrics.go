// metrics.go — Prometheus метрики File Metadata Service.
// HTTP-метрики: fm_http_requests_total, fm_http_request_duration_seconds.
// Бизнес-метрики обновляются из сервисного слоя.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_http_requests_total",
			Help: "Общее количество HTTP-запросов к File Metadata Service",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fm_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к File Metadata Service в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Бизнес-метрики (экспортируются для обновления из сервисного слоя)
var (
	// RecordsTotal — количество записей в индексе (gauge).
	// Увеличивается при регистрации, выставляется точно при сверке.
	RecordsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fm_records_total",
			Help: "Текущее количество записей в индексе метаданных",
		},
	)

	// OperationsTotal — общее количество файловых операций.
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fm_operations_total",
			Help: "Общее количество файловых операций",
		},
		[]string{"operation", "result"},
	)
)

// RegisterDiskUsage регистрирует gauge-метрики ёмкости диска
// директории по умолчанию. usage вызывается при каждом scrape.
func RegisterDiskUsage(reg prometheus.Registerer, usage func() (total, used, available int64, err error)) {
	read := func(pick func(total, used, available int64) int64) func() float64 {
		return func() float64 {
			total, used, available, err := usage()
			if err != nil {
				return 0
			}
			return float64(pick(total, used, available))
		}
	}

	factory := promauto.With(reg)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fm_disk_total_bytes",
		Help: "Ёмкость файловой системы директории по умолчанию в байтах",
	}, read(func(total, _, _ int64) int64 { return total }))
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "fm_disk_available_bytes",
		Help: "Свободное место в директории по умолчанию в байтах",
	}, read(func(_, _, available int64) int64 { return available }))
}

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Путь в лейблах — шаблон маршрута chi ({id} вместо значения),
// чтобы не раздувать кардинальность.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			path := routePattern(r)
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routePattern возвращает шаблон маршрута, по которому chi обработал запрос.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
