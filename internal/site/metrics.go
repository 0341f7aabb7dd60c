package site

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// siteMetrics holds the server's prometheus instrumentation on a private
// registry so tests can run multiple servers without collisions.
type siteMetrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	reloadsTotal prometheus.Counter
	wsClients    prometheus.Gauge
}

func newSiteMetrics() *siteMetrics {
	m := &siteMetrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clinviz_http_requests_total",
				Help: "HTTP requests served, by method, path and status.",
			},
			[]string{"method", "path", "status"}),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clinviz_http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"}),
		reloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "clinviz_reloads_broadcast_total",
				Help: "Live-reload notifications broadcast to browsers.",
			}),
		wsClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "clinviz_reload_clients",
				Help: "Currently connected live-reload clients.",
			}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.reloadsTotal, m.wsClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *siteMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
