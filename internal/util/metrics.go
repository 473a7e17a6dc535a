package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Total number of checkout attempts",
	})

	CheckoutRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_rejected_total",
		Help: "Total number of rejected checkouts",
	}, []string{"reason"})

	OrdersRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_recorded_total",
		Help: "Total number of orders recorded with inventory reserved",
	})

	OrdersPaidTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Total number of orders confirmed paid",
	})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	ReservationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inventory_reservation_latency_seconds",
		Help:    "Latency of the reservation transaction",
		Buckets: prometheus.DefBuckets,
	})

	ReservationConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reservation_conflicts_total",
		Help: "Total number of reservations lost to a concurrent checkout",
	}, []string{"reason"})

	ReservationsReleasedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_reservations_released_total",
		Help: "Total number of compensating reservation releases",
	})

	PaymentChargesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_charges_total",
		Help: "Total number of split-charge creation attempts",
	})

	PaymentChargeFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_charge_failed_total",
		Help: "Total number of failed split-charge creations",
	}, []string{"reason"})

	PaymentChargeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_charge_latency_seconds",
		Help:    "Latency of split-charge creation",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
