package request

import "time"

type CreateBookingRequest struct {
	SpotID    string    `json:"spot_id" validate:"required,uuid"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}
