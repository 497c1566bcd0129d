package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/usecase"
	"smart-parking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Spot    *SpotHandler
	Booking *BookingHandler
	Payment *PaymentHandler
	Health  *HealthHandler
}

func NewHandler(service *usecase.Service, db Pinger, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Spot:    NewSpotHandler(service.Spot, log),
		Booking: NewBookingHandler(service.Booking, log),
		Payment: NewPaymentHandler(service.Payment, log),
		Health:  NewHealthHandler(db, log),
	}
}

// decodeBody rejects unknown fields so typos in client payloads surface as 400s.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// actorFromRequest reads the caller placed on the context by the auth middleware.
func actorFromRequest(r *http.Request) (usecase.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Actor{}, false
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return usecase.Actor{ID: userID, Role: entity.UserRole(role)}, true
}

func idParam(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func paginationFromQuery(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}

// respondError maps service errors onto HTTP statuses. Anything unrecognised is a 500
// and is logged with the full error; the client only gets a generic message.
func respondError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validation *usecase.ValidationError

	switch {
	case errors.As(err, &validation):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, "Validation failed", validation.Fields)

	case errors.Is(err, usecase.ErrInvalidTimeRange):
		log.Warn(operation+" failed - invalid time range", zap.Error(err))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrPaymentWindowClosed):
		log.Warn(operation+" failed - payment window closed", zap.Error(err))
		utils.ResponseBadRequest(w, "Payment window has closed, create a new booking", nil)

	case errors.Is(err, usecase.ErrInvalidCredentials):
		log.Warn(operation+" failed - invalid credentials", zap.Error(err))
		utils.ResponseUnauthorized(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseForbidden(w, "You do not have access to this resource")

	case errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrSpotNotFound),
		errors.Is(err, usecase.ErrPaymentNotFound):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrSpotUnavailable):
		log.Info(operation+" failed - spot full", zap.Error(err))
		utils.ResponseConflict(w, "No spots available at this location")

	case errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrSpotInUse),
		errors.Is(err, usecase.ErrEmailTaken):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrStoreUnavailable):
		log.Error(operation+" failed - store unavailable", zap.Error(err))
		utils.ResponseServiceUnavailable(w, "Service temporarily unavailable, please retry")

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
