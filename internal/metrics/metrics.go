package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbooker",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbooker",
			Name:      "bookings_total",
			Help:      "Booking operations by outcome.",
		},
		[]string{"status"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "carbooker",
			Name:      "payments_total",
			Help:      "Payment transitions by provider and status.",
		},
		[]string{"provider", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookings, payments)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBooking counts a booking operation outcome (created, cancelled, conflict).
func IncBooking(status string) {
	bookings.WithLabelValues(status).Inc()
}

// IncPayment counts a payment transition for a provider.
func IncPayment(provider, status string) {
	payments.WithLabelValues(provider, status).Inc()
}
