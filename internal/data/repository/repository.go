package repository

import (
	"context"

	"smart-parking/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type Repository struct {
	User    UserRepository
	Spot    SpotRepository
	Booking BookingRepository
	Rating  RatingRepository
	Payment PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:    NewUserRepository(db, log),
		Spot:    NewSpotRepository(db, log),
		Booking: NewBookingRepository(db, log),
		Rating:  NewRatingRepository(db, log),
		Payment: NewPaymentRepository(db, log),
	}
}

// querier is satisfied by both the pool and an open transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}
