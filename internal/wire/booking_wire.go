package wire

import (
	"net/http"

	"smart-parking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	auth func(http.Handler) http.Handler,
) {
	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(auth)

		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/", bookingHandler.GetUserBookings)
		r.Get("/{id}", bookingHandler.GetBooking)
		r.Post("/{id}/cancel", bookingHandler.CancelBooking)
		r.Get("/{id}/qr", bookingHandler.GetQRCode)
	})
}
