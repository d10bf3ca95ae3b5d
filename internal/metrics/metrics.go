// Package metrics exposes Prometheus collectors for HTTP traffic and
// order activity. Collectors live on their own registry owned by the
// application context, so tests can build as many as they like.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	Registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	OrdersCreated *prometheus.CounterVec
	StatusChanges *prometheus.CounterVec
	EventFailures prometheus.Counter
}

func New(service string) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopease",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shopease",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopease",
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Orders created, by payment method.",
		}, []string{"payment_method"}),
		StatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopease",
			Subsystem: service,
			Name:      "order_status_changes_total",
			Help:      "Order status changes, by resulting status.",
		}, []string{"status"}),
		EventFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shopease",
			Subsystem: service,
			Name:      "order_event_publish_failures_total",
			Help:      "Order events that could not be handed to the broker.",
		}),
	}
	m.Registry.MustRegister(
		m.Requests, m.LatencyMS, m.OrdersCreated, m.StatusChanges, m.EventFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
