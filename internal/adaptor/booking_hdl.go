package adaptor

import (
	"net/http"

	"smart-parking/internal/dto/request"
	"smart-parking/internal/usecase"
	"smart-parking/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings (protected)
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), userID, &req)
	if err != nil {
		respondError(w, h.log, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "Booking created, complete payment before the deadline", booking)
}

// GetUserBookings handles GET /api/bookings (protected)
func (h *BookingHandler) GetUserBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookings, err := h.service.GetUserBookings(r.Context(), userID, paginationFromQuery(r))
	if err != nil {
		respondError(w, h.log, err, "get user bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetBooking handles GET /api/bookings/{id} (protected)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, err := h.service.GetBooking(r.Context(), actor, bookingID)
	if err != nil {
		respondError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// CancelBooking handles POST /api/bookings/{id}/cancel (protected)
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	booking, err := h.service.CancelBooking(r.Context(), actor, bookingID)
	if err != nil {
		respondError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "Booking cancelled", booking)
}

// GetQRCode handles GET /api/bookings/{id}/qr (protected)
func (h *BookingHandler) GetQRCode(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return
	}

	qr, err := h.service.GetQRPayload(r.Context(), actor, bookingID)
	if err != nil {
		respondError(w, h.log, err, "get booking qr")
		return
	}

	utils.ResponseSuccess(w, "success", qr)
}

// GetSpotBookings handles GET /api/owner/spots/{id}/bookings (owner only)
func (h *BookingHandler) GetSpotBookings(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	spotID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid spot ID", nil)
		return
	}

	bookings, err := h.service.GetSpotBookings(r.Context(), actor, spotID, paginationFromQuery(r))
	if err != nil {
		respondError(w, h.log, err, "get spot bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}
