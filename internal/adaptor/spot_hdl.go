package adaptor

import (
	"net/http"

	"smart-parking/internal/dto/request"
	"smart-parking/internal/geo"
	"smart-parking/internal/usecase"
	"smart-parking/pkg/utils"

	"go.uber.org/zap"
)

type SpotHandler struct {
	service usecase.SpotService
	log     *zap.Logger
}

func NewSpotHandler(service usecase.SpotService, log *zap.Logger) *SpotHandler {
	return &SpotHandler{
		service: service,
		log:     log.With(zap.String("handler", "spot")),
	}
}

// ListSpots handles GET /api/spots
func (h *SpotHandler) ListSpots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.service.ListSpots(r.Context(), paginationFromQuery(r))
	if err != nil {
		respondError(w, h.log, err, "list spots")
		return
	}

	utils.ResponseSuccess(w, "success", spots)
}

// observerFromQuery reads lat/lng, falling back to the city centre when the client
// sends no position. A half-specified or malformed position is rejected.
func observerFromQuery(r *http.Request) (geo.Coordinate, bool) {
	query := r.URL.Query()
	if query.Get("lat") == "" && query.Get("lng") == "" {
		return geo.Kathmandu, true
	}

	lat, okLat := utils.ParseFloat(query.Get("lat"))
	lng, okLng := utils.ParseFloat(query.Get("lng"))
	if !okLat || !okLng {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Lat: lat, Lng: lng}, true
}

// NearbySpots handles GET /api/spots/nearby?lat=&lng=&radius=&limit=
func (h *SpotHandler) NearbySpots(w http.ResponseWriter, r *http.Request) {
	observer, ok := observerFromQuery(r)
	if !ok {
		utils.ResponseBadRequest(w, "lat and lng must both be valid numbers", nil)
		return
	}

	req := &request.NearbyRequest{Lat: observer.Lat, Lng: observer.Lng}
	if radius := r.URL.Query().Get("radius"); radius != "" {
		value, ok := utils.ParseFloat(radius)
		if !ok {
			utils.ResponseBadRequest(w, "radius must be a number", nil)
			return
		}
		req.RadiusKM = value
	}
	req.Limit = utils.ParseInt(r.URL.Query().Get("limit"), 0)

	spots, err := h.service.NearbySpots(r.Context(), req)
	if err != nil {
		respondError(w, h.log, err, "nearby spots")
		return
	}

	utils.ResponseSuccess(w, "success", spots)
}

// NearestSpot handles GET /api/spots/nearest?lat=&lng=
func (h *SpotHandler) NearestSpot(w http.ResponseWriter, r *http.Request) {
	observer, ok := observerFromQuery(r)
	if !ok {
		utils.ResponseBadRequest(w, "lat and lng must both be valid numbers", nil)
		return
	}

	spot, err := h.service.NearestSpot(r.Context(), observer)
	if err != nil {
		respondError(w, h.log, err, "nearest spot")
		return
	}

	utils.ResponseSuccess(w, "success", spot)
}

// GetSpot handles GET /api/spots/{id}
func (h *SpotHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	spotID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid spot ID", nil)
		return
	}

	spot, err := h.service.GetSpot(r.Context(), spotID)
	if err != nil {
		respondError(w, h.log, err, "get spot")
		return
	}

	utils.ResponseSuccess(w, "success", spot)
}

// GetSpotRatings handles GET /api/spots/{id}/ratings
func (h *SpotHandler) GetSpotRatings(w http.ResponseWriter, r *http.Request) {
	spotID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid spot ID", nil)
		return
	}

	ratings, err := h.service.GetSpotRatings(r.Context(), spotID)
	if err != nil {
		respondError(w, h.log, err, "get spot ratings")
		return
	}

	utils.ResponseSuccess(w, "success", ratings)
}

// RateSpot handles POST /api/spots/{id}/ratings (protected)
func (h *SpotHandler) RateSpot(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	spotID, ok := idParam(r)
	if !ok {
		utils.ResponseBadRequest(w, "Invalid spot ID", nil)
		return
	}

	var req request.RateSpotRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	spot, err := h.service.RateSpot(r.Context(), userID, spotID, &req)
	if err != nil {
		respondError(w, h.log, err, "rate spot")
		return
	}

	utils.ResponseCreated(w, "Rating saved", spot)
}

// ==================== OWNER METHODS ====================

// CreateSpot handles POST /api/owner/spots
func (h *SpotHandler) CreateSpot(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateSpotRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	spot, err := h.service.CreateSpot(r.Context(), actor, &req)
	if err != nil {
		respondError(w, h.log, err, "create spot")
		return
	}

	utils.ResponseCreated(w, "Spot created", spot)
}

// ListOwnerSpots handles GET /api/owner/spots
func (h *SpotHandler) ListOwnerSpots(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	spots, err := h.service.ListOwnerSpots(r.Context(), actor.ID)
	if err != nil {
		respondError(w, h.log, err, "list owner spots")
		return
	}

	utils.ResponseSuccess(w, "success", spots)
}

// UpdateSpot handles PUT /api/owner/spots/{id}
func (h *SpotHandler) UpdateSpot(w http.ResponseWriter, r *http.Request) {
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

	var req request.UpdateSpotRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	spot, err := h.service.UpdateSpot(r.Context(), actor, spotID, &req)
	if err != nil {
		respondError(w, h.log, err, "update spot")
		return
	}

	utils.ResponseSuccess(w, "Spot updated", spot)
}

// DeleteSpot handles DELETE /api/owner/spots/{id}
func (h *SpotHandler) DeleteSpot(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.DeleteSpot(r.Context(), actor, spotID); err != nil {
		respondError(w, h.log, err, "delete spot")
		return
	}

	utils.ResponseSuccess(w, "Spot deleted", nil)
}
