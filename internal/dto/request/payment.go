package request

type InitiatePaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Method    string `json:"method" validate:"required,oneof=esewa khalti"`
}

// PaymentCallbackRequest is the gateway outcome relayed by the redirect page.
type PaymentCallbackRequest struct {
	Token      string   `json:"token" validate:"required"`
	Status     string   `json:"status" validate:"required,oneof=success failed"`
	GatewayRef *string  `json:"gateway_ref,omitempty" validate:"omitempty,max=255"`
	Reason     *string  `json:"reason,omitempty" validate:"omitempty,max=500"`
	Amount     *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}
