// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by method, route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_http_requests_total",
			Help: "Total HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes request latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carpool_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// CheckoutOutcomes counts terminal checkout states.
	CheckoutOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carpool_checkout_outcomes_total",
			Help: "Checkout attempts by terminal state.",
		},
		[]string{"state"},
	)

	// FareEstimatesTotal counts completed fare estimate lookups.
	FareEstimatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carpool_fare_estimates_total",
			Help: "Fare estimates computed.",
		},
	)

	// FareEstimatesStale counts estimate responses discarded because a newer
	// request superseded them.
	FareEstimatesStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carpool_fare_estimates_stale_total",
			Help: "Fare estimate responses discarded as stale.",
		},
	)

	// StatusPollsSkipped counts poll ticks dropped because the previous poll
	// was still in flight.
	StatusPollsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carpool_status_polls_skipped_total",
			Help: "Status sync ticks skipped due to an in-flight poll.",
		},
	)

	// ReviewObligationsPending gauges the current number of completed rides
	// awaiting a rider review.
	ReviewObligationsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "carpool_review_obligations_pending",
			Help: "Completed bookings awaiting a review.",
		},
	)
)
