// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the sync passes.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one server instance.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	filesOnDisk    prometheus.Gauge
	curatedRecords prometheus.Gauge
	syncRunsTotal  *prometheus.CounterVec
}

// New creates and registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parqhub_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "parqhub_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		filesOnDisk: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parqhub_files_on_disk",
			Help: "Parquet files currently present in the data directory.",
		}),
		curatedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parqhub_curated_records",
			Help: "File metadata records in the catalog.",
		}),
		syncRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parqhub_sync_runs_total",
			Help: "Sync passes by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.filesOnDisk,
		m.curatedRecords,
		m.syncRunsTotal,
	)
	return m
}

// Handler serves the /metrics endpoint for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments every request with a counter and latency histogram.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.requestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		m.requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// SetInventory records the current catalog gauges.
func (m *Metrics) SetInventory(filesOnDisk, curatedRecords int) {
	m.filesOnDisk.Set(float64(filesOnDisk))
	m.curatedRecords.Set(float64(curatedRecords))
}

// ObserveSync counts one sync pass.
func (m *Metrics) ObserveSync(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.syncRunsTotal.WithLabelValues(kind, outcome).Inc()
}
