package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cable_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ActionRequestsSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cable_action_requests_submitted_total",
			Help: "Action requests raised by employees",
		},
	)

	ActionRequestsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_action_requests_resolved_total",
			Help: "Action requests resolved by admins, by decision",
		},
		[]string{"decision"},
	)

	PaymentsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_payments_recorded_total",
			Help: "Payments recorded, by mode",
		},
		[]string{"mode"},
	)

	PaymentAmountCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cable_payment_amount_collected_rupees",
			Help: "Total amount collected in rupees, by mode",
		},
		[]string{"mode"},
	)
)
