package adaptor

import (
	"net/http"

	"smart-parking/internal/dto/request"
	"smart-parking/internal/usecase"
	"smart-parking/pkg/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// InitiatePayment handles POST /api/payments (protected)
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.InitiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.InitiatePayment(r.Context(), userID, &req)
	if err != nil {
		respondError(w, h.log, err, "initiate payment")
		return
	}

	utils.ResponseCreated(w, "Payment initiated", resp)
}

// PaymentCallback handles POST /api/payments/callback. The gateway result page relays
// the outcome here; the token alone identifies the attempt.
func (h *PaymentHandler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req request.PaymentCallbackRequest
	if err := decodeBody(r, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	resp, err := h.service.HandleCallback(r.Context(), &req)
	if err != nil {
		respondError(w, h.log, err, "payment callback")
		return
	}

	utils.ResponseSuccess(w, "Payment "+resp.Status, resp)
}
