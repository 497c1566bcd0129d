package response

import (
	"time"

	"smart-parking/internal/data/entity"
)

type BookingResponse struct {
	ID              string                `json:"id"`
	BookingCode     string                `json:"booking_code"`
	SpotID          string                `json:"spot_id"`
	UserID          string                `json:"user_id"`
	StartTime       time.Time             `json:"start_time"`
	EndTime         time.Time             `json:"end_time"`
	Hours           int                   `json:"hours"`
	PricePerHour    float64               `json:"price_per_hour"`
	TotalAmount     float64               `json:"total_amount"`
	PaymentStatus   entity.PaymentStatus  `json:"payment_status"`
	BookingStatus   entity.BookingStatus  `json:"booking_status"`
	State           entity.BookingState   `json:"state"`
	PaymentMethod   *entity.PaymentMethod `json:"payment_method,omitempty"`
	TransactionRef  *string               `json:"transaction_ref,omitempty"`
	PaymentDeadline time.Time             `json:"payment_deadline"`
	CreatedAt       time.Time             `json:"created_at"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
}

type QRResponse struct {
	Payload entity.QRPayload `json:"payload"`
	Encoded string           `json:"encoded"`
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID.String(),
		BookingCode:     b.BookingCode,
		SpotID:          b.SpotID.String(),
		UserID:          b.UserID.String(),
		StartTime:       b.StartTime,
		EndTime:         b.EndTime,
		Hours:           b.Hours,
		PricePerHour:    b.PricePerHour,
		TotalAmount:     b.TotalAmount,
		PaymentStatus:   b.PaymentStatus,
		BookingStatus:   b.BookingStatus,
		State:           b.State(),
		PaymentMethod:   b.PaymentMethod,
		TransactionRef:  b.TransactionRef,
		PaymentDeadline: b.PaymentDeadline,
		CreatedAt:       b.CreatedAt,
		CancelledAt:     b.CancelledAt,
	}
}

func BookingsToResponse(bookings []*entity.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b))
	}
	return out
}
