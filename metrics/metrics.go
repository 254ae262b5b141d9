// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Link creation kinds.
const (
	KindGenerated = "generated"
	KindCustom    = "custom"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec   // by endpoint, method, status
	HTTPRequestDuration *prometheus.HistogramVec // by endpoint, method
	HTTPRequestsActive  prometheus.Gauge

	LinksCreatedTotal   *prometheus.CounterVec // by kind
	RedirectsTotal      prometheus.Counter
	ExpiredHitsTotal    prometheus.Counter
	LinksPurgedTotal    *prometheus.CounterVec // by reason
	CreateFailuresTotal *prometheus.CounterVec // by reason
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by endpoint, method and status code",
			},
			[]string{"endpoint", "method", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
		HTTPRequestsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_active",
				Help: "Number of HTTP requests currently being processed",
			},
		),
		LinksCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "links_created_total",
				Help: "Total number of short links created, by generated or custom code",
			},
			[]string{"kind"},
		),
		RedirectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "link_redirects_total",
				Help: "Total number of redirects served",
			},
		),
		ExpiredHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "link_expired_hits_total",
				Help: "Total number of resolve attempts on expired links",
			},
		),
		LinksPurgedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "links_purged_total",
				Help: "Total number of links removed, by purge kind",
			},
			[]string{"reason"},
		),
		CreateFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "link_create_failures_total",
				Help: "Total number of rejected link creations, by reason",
			},
			[]string{"reason"},
		),
	}
}
