package response

import (
	"time"

	"smart-parking/internal/data/entity"
)

type SpotResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Description    *string   `json:"description,omitempty"`
	PricePerHour   float64   `json:"price_per_hour"`
	TotalSpots     int       `json:"total_spots"`
	AvailableSpots int       `json:"available_spots"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Amenities      []string  `json:"amenities"`
	OpenTime       *string   `json:"open_time,omitempty"`
	CloseTime      *string   `json:"close_time,omitempty"`
	Rating         float64   `json:"rating"`
	TotalRatings   int       `json:"total_ratings"`
	CreatedAt      time.Time `json:"created_at"`
}

type SpotWithDistanceResponse struct {
	SpotResponse
	DistanceKM float64 `json:"distance_km"`
}

type RatingResponse struct {
	ID        string    `json:"id"`
	SpotID    string    `json:"spot_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func SpotToResponse(spot *entity.Spot) SpotResponse {
	amenities := spot.Amenities
	if amenities == nil {
		amenities = []string{}
	}

	return SpotResponse{
		ID:             spot.ID.String(),
		OwnerID:        spot.OwnerID.String(),
		Name:           spot.Name,
		Address:        spot.Address,
		Description:    spot.Description,
		PricePerHour:   spot.PricePerHour,
		TotalSpots:     spot.TotalSpots,
		AvailableSpots: spot.AvailableSpots,
		Latitude:       spot.Latitude,
		Longitude:      spot.Longitude,
		Amenities:      amenities,
		OpenTime:       spot.OpenTime,
		CloseTime:      spot.CloseTime,
		Rating:         spot.Rating,
		TotalRatings:   spot.TotalRatings,
		CreatedAt:      spot.CreatedAt,
	}
}

func RatingToResponse(rating *entity.Rating) RatingResponse {
	return RatingResponse{
		ID:        rating.ID.String(),
		SpotID:    rating.SpotID.String(),
		UserID:    rating.UserID.String(),
		Rating:    rating.Rating,
		Comment:   rating.Comment,
		CreatedAt: rating.CreatedAt,
	}
}
