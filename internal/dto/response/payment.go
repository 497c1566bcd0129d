package response

import "smart-parking/internal/data/entity"

// PaymentInitiationResponse tells the client where to send the user. Status is
// "pending" until the gateway reports back; mock gateways settle at once.
type PaymentInitiationResponse struct {
	Token       string               `json:"token"`
	Method      entity.PaymentMethod `json:"method"`
	Status      string               `json:"status"`
	RedirectURL string               `json:"redirect_url,omitempty"`
	HTTPMethod  string               `json:"http_method,omitempty"`
	Fields      map[string]string    `json:"fields,omitempty"`
	Booking     *BookingResponse     `json:"booking,omitempty"`
}

type PaymentCallbackResponse struct {
	Token   string           `json:"token"`
	Status  string           `json:"status"`
	Booking *BookingResponse `json:"booking,omitempty"`
}
