// Package metrics holds the service's prometheus collectors behind an
// explicit instance so nothing registers against a process-wide default.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	requestCount       *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestsInProgress *prometheus.GaugeVec

	orderCreationTotal    *prometheus.CounterVec
	orderItemCount        *prometheus.CounterVec
	orderTotalAmount      prometheus.Histogram
	statusUpdateTotal     *prometheus.CounterVec
	inventoryCallTotal    *prometheus.CounterVec
	inventoryCallDuration *prometheus.HistogramVec
	restockFailureTotal   prometheus.Counter
}

func New(appName string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"app_name": appName}

	m := &Metrics{
		registry: reg,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total HTTP requests processed by the application.",
			ConstLabels: labels,
		}, []string{"method", "endpoint", "status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds.",
			ConstLabels: labels,
		}, []string{"method", "endpoint", "status_code"}),
		requestsInProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "http_requests_in_progress",
			Help:        "Number of HTTP requests in progress.",
			ConstLabels: labels,
		}, []string{"method", "endpoint"}),
		orderCreationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "order_creation_total",
			Help:        "Total number of order creation attempts by outcome.",
			ConstLabels: labels,
		}, []string{"status"}),
		orderItemCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "order_item_count",
			Help:        "Total units reserved across orders, per product.",
			ConstLabels: labels,
		}, []string{"product_id"}),
		orderTotalAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "order_total_amount_dollars",
			Help:        "Total amount of confirmed orders in dollars.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),
		statusUpdateTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "order_status_update_total",
			Help:        "Total order status updates by outcome.",
			ConstLabels: labels,
		}, []string{"status"}),
		inventoryCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "inventory_service_call_total",
			Help:        "Total calls made to the inventory service.",
			ConstLabels: labels,
		}, []string{"target_endpoint", "method", "status_code"}),
		inventoryCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "inventory_service_call_duration_seconds",
			Help:        "Duration of calls to the inventory service.",
			ConstLabels: labels,
		}, []string{"target_endpoint", "method", "status_code"}),
		restockFailureTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "stock_restock_failure_total",
			Help:        "Add-stock compensation calls that failed and were abandoned.",
			ConstLabels: labels,
		}),
	}

	reg.MustRegister(
		m.requestCount, m.requestDuration, m.requestsInProgress,
		m.orderCreationTotal, m.orderItemCount, m.orderTotalAmount,
		m.statusUpdateTotal, m.inventoryCallTotal, m.inventoryCallDuration,
		m.restockFailureTotal,
	)
	return m
}

// Handler serves this instance's registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records count, duration and in-progress gauges per request.
// The /metrics endpoint itself is not tracked.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		inProgress := m.requestsInProgress.WithLabelValues(r.Method, r.URL.Path)
		inProgress.Inc()
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		inProgress.Dec()
		code := strconv.Itoa(ww.Status())
		m.requestCount.WithLabelValues(r.Method, r.URL.Path, code).Inc()
		m.requestDuration.WithLabelValues(r.Method, r.URL.Path, code).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) OrderCreated(outcome string) {
	m.orderCreationTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ItemsReserved(productID int64, quantity int) {
	m.orderItemCount.WithLabelValues(strconv.FormatInt(productID, 10)).Add(float64(quantity))
}

func (m *Metrics) ObserveOrderTotal(amount float64) {
	m.orderTotalAmount.Observe(amount)
}

func (m *Metrics) StatusUpdated(outcome string) {
	m.statusUpdateTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInventoryCall(target, method, status string, elapsed time.Duration) {
	m.inventoryCallTotal.WithLabelValues(target, method, status).Inc()
	m.inventoryCallDuration.WithLabelValues(target, method, status).Observe(elapsed.Seconds())
}

func (m *Metrics) RestockFailed() {
	m.restockFailureTotal.Inc()
}
