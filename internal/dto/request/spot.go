package request

type CreateSpotRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=150"`
	Address      string   `json:"address" validate:"required,max=500"`
	Description  *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	PricePerHour *float64 `json:"price_per_hour" validate:"required,gte=0"`
	TotalSpots   int      `json:"total_spots" validate:"required,min=1,max=10000"`
	Latitude     *float64 `json:"latitude" validate:"required,latitude"`
	Longitude    *float64 `json:"longitude" validate:"required,longitude"`
	Amenities    []string `json:"amenities,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	OpenTime     *string  `json:"open_time,omitempty" validate:"omitempty,datetime=15:04"`
	CloseTime    *string  `json:"close_time,omitempty" validate:"omitempty,datetime=15:04"`
}

// UpdateSpotRequest carries only the fields to change. Capacity is fixed at creation.
type UpdateSpotRequest struct {
	Name         *string   `json:"name,omitempty" validate:"omitempty,min=2,max=150"`
	Address      *string   `json:"address,omitempty" validate:"omitempty,max=500"`
	Description  *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	PricePerHour *float64  `json:"price_per_hour,omitempty" validate:"omitempty,gte=0"`
	Latitude     *float64  `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64  `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Amenities    *[]string `json:"amenities,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	OpenTime     *string   `json:"open_time,omitempty" validate:"omitempty,datetime=15:04"`
	CloseTime    *string   `json:"close_time,omitempty" validate:"omitempty,datetime=15:04"`
}

type NearbyRequest struct {
	Lat      float64 `validate:"latitude"`
	Lng      float64 `validate:"longitude"`
	RadiusKM float64 `validate:"gt=0,max=100"`
	Limit    int     `validate:"min=1,max=100"`
}

type RateSpotRequest struct {
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=500"`
}
