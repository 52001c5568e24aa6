// Package metrics exposes Prometheus counters for orders, gateway
// notifications, bot updates and the webhook HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "callmylawyer"

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced  *prometheus.CounterVec
	reconciled    *prometheus.CounterVec
	updates       *prometheus.CounterVec
	replies       prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpLatencyMS *prometheus.HistogramVec
}

// New registers all collectors, including Go runtime and process metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Confirmed checkouts by resulting order status.",
		}, []string{"status"}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_notifications_total",
			Help:      "Gateway result notifications by reconciliation outcome.",
		}, []string{"outcome"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Handled Telegram updates by kind and result.",
		}, []string{"kind", "status"}),
		replies: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "replies_total",
			Help:      "Messages sent or edited in reply to updates.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "http_requests_total",
			Help:      "Total number of webhook HTTP requests.",
		}, []string{"handler", "status"}),
		httpLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "http_request_duration_ms",
			Help:      "Webhook HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
	}
	m.registry.MustRegister(
		m.ordersPlaced,
		m.reconciled,
		m.updates,
		m.replies,
		m.httpRequests,
		m.httpLatencyMS,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// OrderPlaced counts a confirmed checkout.
func (m *Metrics) OrderPlaced(status string) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(status).Inc()
}

// Reconciled counts a processed gateway notification.
func (m *Metrics) Reconciled(outcome string) {
	if m == nil {
		return
	}
	m.reconciled.WithLabelValues(outcome).Inc()
}

// ObserveUpdate counts one handled update and the replies it produced.
func (m *Metrics) ObserveUpdate(kind string, replies int, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "fail"
	}
	m.updates.WithLabelValues(kind, status).Inc()
	m.replies.Add(float64(replies))
}

// ObserveHTTP records one webhook request.
func (m *Metrics) ObserveHTTP(handler, status string, ms float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(handler, status).Inc()
	m.httpLatencyMS.WithLabelValues(handler).Observe(ms)
}

// Gauge registers a gauge sampled from fn at scrape time.
func (m *Metrics) Gauge(name, help string, fn func() float64) {
	if m == nil || fn == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
