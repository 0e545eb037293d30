package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	paymentAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_attempts_total",
			Help: "Payment attempts by request kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	requestsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "requests_expired_total",
			Help: "Accepted but unpaid requests released by the sweeper",
		},
	)
)
