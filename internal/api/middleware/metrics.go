// metrics.go — Prometheus HTTP метрики civicwatch.
// Регистрирует метрики: cw_http_requests_total, cw_http_request_duration_seconds.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cw_http_requests_total",
			Help: "Общее количество HTTP-запросов к civicwatch",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cw_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к civicwatch в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
// Записывает количество запросов и длительность для каждого endpoint.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := newResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.statusCode)
			path := routeLabel(r)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// routeLabel возвращает шаблон маршрута chi (/api/v1/panels/{id}),
// а для запросов вне роутера — нормализованный путь.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return normalizePath(r.URL.Path)
}

// normalizePath заменяет UUID и числовые сегменты пути на плейсхолдеры
// для предотвращения взрывного роста кардинальности метрик.
// /api/v1/panels/a1b2c3d4-... → /api/v1/panels/{id}
// /api/v1/mel/properties/50.6/3.05 → /api/v1/mel/properties/{n}/{n}
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
			segments[i] = "{id}"
			continue
		}
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			segments[i] = "{n}"
		}
	}
	return strings.Join(segments, "/")
}
