package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_booking_transitions_total",
		Help: "Booking lifecycle transitions by target state.",
	}, []string{"state"})

	bookingRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_booking_rejections_total",
		Help: "Booking requests rejected before a hold was taken, by reason.",
	}, []string{"reason"})

	paymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_payment_outcomes_total",
		Help: "Resolved payment attempts by method and result.",
	}, []string{"method", "result"})
)
