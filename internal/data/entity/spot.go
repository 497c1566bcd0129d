package entity

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidSpot = errors.New("invalid spot")

type Spot struct {
	Base
	OwnerID        uuid.UUID `db:"owner_id"`
	Name           string    `db:"name"`
	Address        string    `db:"address"`
	Description    *string   `db:"description"`
	PricePerHour   float64   `db:"price_per_hour"`
	TotalSpots     int       `db:"total_spots"`
	AvailableSpots int       `db:"available_spots"`
	Latitude       float64   `db:"latitude"`
	Longitude      float64   `db:"longitude"`
	Amenities      []string  `db:"amenities"`
	OpenTime       *string   `db:"open_time"`
	CloseTime      *string   `db:"close_time"`
	Rating         float64   `db:"rating"`
	TotalRatings   int       `db:"total_ratings"`
}

// Validate rejects records that break the inventory invariants. It is applied to every
// row read from or written to the store.
func (s *Spot) Validate() error {
	switch {
	case s.ID == uuid.Nil:
		return errors.Join(ErrInvalidSpot, errors.New("missing id"))
	case s.OwnerID == uuid.Nil:
		return errors.Join(ErrInvalidSpot, errors.New("missing owner"))
	case s.PricePerHour < 0:
		return errors.Join(ErrInvalidSpot, errors.New("negative price"))
	case s.TotalSpots <= 0:
		return errors.Join(ErrInvalidSpot, errors.New("total spots must be positive"))
	case s.AvailableSpots < 0 || s.AvailableSpots > s.TotalSpots:
		return errors.Join(ErrInvalidSpot, errors.New("available spots out of range"))
	case s.Latitude < -90 || s.Latitude > 90:
		return errors.Join(ErrInvalidSpot, errors.New("latitude out of range"))
	case s.Longitude < -180 || s.Longitude > 180:
		return errors.Join(ErrInvalidSpot, errors.New("longitude out of range"))
	}
	return nil
}

func (s *Spot) HasCapacity() bool {
	return s.AvailableSpots > 0
}
