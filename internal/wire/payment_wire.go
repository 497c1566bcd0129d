package wire

import (
	"net/http"

	"smart-parking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	auth func(http.Handler) http.Handler,
) {
	r.With(auth).Post("/api/payments", paymentHandler.InitiatePayment)

	// Called from the gateway result page, so no bearer token
	r.Post("/api/payments/callback", paymentHandler.PaymentCallback)
}
