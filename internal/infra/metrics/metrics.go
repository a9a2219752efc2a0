package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// アプリ専用のレジストリ（テストで何度 New しても衝突しない）
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	ordersPlaced        prometheus.Counter
	ordersCancelled     prometheus.Counter
	orderTransitions    *prometheus.CounterVec
	signatureFailures   prometheus.Counter
	reservationRejected prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders created after payment verification.",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_cancelled_total",
			Help: "Orders cancelled by customers or administrators.",
		}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"status"}),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_signature_failures_total",
			Help: "Rejected payment signatures.",
		}),
		reservationRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_reservation_rejected_total",
			Help: "Stock reservations rejected for insufficient availability.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ordersPlaced,
		m.ordersCancelled,
		m.orderTransitions,
		m.signatureFailures,
		m.reservationRejected,
	)
	return m
}

// /metrics 用
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	s := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, route, s).Inc()
	m.httpDuration.WithLabelValues(method, route, s).Observe(elapsed.Seconds())
}

func (m *Metrics) OrderPlaced() {
	m.ordersPlaced.Inc()
}

func (m *Metrics) OrderCancelled() {
	m.ordersCancelled.Inc()
}

func (m *Metrics) OrderTransition(status string) {
	m.orderTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) SignatureFailed() {
	m.signatureFailures.Inc()
}

func (m *Metrics) ReservationRejected() {
	m.reservationRejected.Inc()
}
