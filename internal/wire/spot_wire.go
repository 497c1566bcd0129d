package wire

import (
	"net/http"

	"smart-parking/internal/adaptor"
	"smart-parking/internal/data/entity"
	"smart-parking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireSpot(
	r chi.Router,
	spotHandler *adaptor.SpotHandler,
	bookingHandler *adaptor.BookingHandler,
	auth func(http.Handler) http.Handler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/spots", spotHandler.ListSpots)
	r.Get("/api/spots/nearby", spotHandler.NearbySpots)  // ?lat=&lng=&radius=&limit=
	r.Get("/api/spots/nearest", spotHandler.NearestSpot) // ?lat=&lng=
	r.Get("/api/spots/{id}", spotHandler.GetSpot)
	r.Get("/api/spots/{id}/ratings", spotHandler.GetSpotRatings)

	// ==================== PROTECTED ROUTES ====================
	r.With(auth).Post("/api/spots/{id}/ratings", spotHandler.RateSpot)

	// ==================== OWNER ROUTES ====================
	r.Route("/api/owner/spots", func(r chi.Router) {
		r.Use(auth)
		r.Use(middleware.RequireRole(log, entity.RoleOwner, entity.RoleAdmin))

		r.Post("/", spotHandler.CreateSpot)
		r.Get("/", spotHandler.ListOwnerSpots)
		r.Put("/{id}", spotHandler.UpdateSpot)
		r.Delete("/{id}", spotHandler.DeleteSpot)
		r.Get("/{id}/bookings", bookingHandler.GetSpotBookings)
	})
}
