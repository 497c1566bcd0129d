package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNoCapacity is returned when a hold is requested on a spot with no free places.
	ErrNoCapacity = errors.New("spot has no available capacity")
	// ErrAtBound is returned when a release would push availability above the spot total.
	ErrAtBound = errors.New("availability already at total")
	// ErrStaleState is returned when a compare-and-set transition finds the row in a different state.
	ErrStaleState = errors.New("booking state changed concurrently")
	ErrDuplicate  = errors.New("duplicate record")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
