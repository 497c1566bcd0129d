package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	// CreateWithHold takes one place from the spot and inserts the booking in a single
	// transaction. ErrNoCapacity when the spot is full or gone.
	CreateWithHold(ctx context.Context, booking *entity.Booking) (remaining int, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByCode(ctx context.Context, code string) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	FindBySpotID(ctx context.Context, spotID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountBySpotID(ctx context.Context, spotID uuid.UUID) (int64, error)

	// Transition applies a compare-and-set status change. ErrStaleState when the booking
	// is no longer in the expected state.
	Transition(ctx context.Context, t BookingTransition) (*entity.Booking, error)

	// Sweep queries
	FindExpiredUnpaid(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
	FindEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
}

// BookingTransition describes one guarded status change. Nil optional fields keep the
// stored value.
type BookingTransition struct {
	BookingID      uuid.UUID
	FromBooking    entity.BookingStatus
	FromPayment    entity.PaymentStatus
	ToBooking      entity.BookingStatus
	ToPayment      entity.PaymentStatus
	PaymentMethod  *entity.PaymentMethod
	TransactionRef *string
	CancelledAt    *time.Time
	ReleaseHold    bool
	At             time.Time
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, booking_code, spot_id, user_id, start_time, end_time, hours,
	price_per_hour, total_amount, payment_status, booking_status, payment_method,
	transaction_ref, payment_deadline, created_at, updated_at, cancelled_at`

const (
	takePlaceQuery = `
		UPDATE parking_spots
		SET available_spots = available_spots - 1, updated_at = $2
		WHERE id = $1 AND available_spots > 0 AND deleted_at IS NULL
		RETURNING available_spots
	`
	releasePlaceQuery = `
		UPDATE parking_spots
		SET available_spots = available_spots + 1, updated_at = $2
		WHERE id = $1 AND available_spots < total_spots
		RETURNING available_spots
	`
)

// adjustAvailability moves the spot counter by one in either direction. The guard lives
// in the WHERE clause so concurrent callers can never push it outside [0, total].
func adjustAvailability(ctx context.Context, q querier, spotID uuid.UUID, delta int, at time.Time) (int, error) {
	query := takePlaceQuery
	bound := ErrNoCapacity
	if delta > 0 {
		query = releasePlaceQuery
		bound = ErrAtBound
	}

	var available int
	err := q.QueryRow(ctx, query, spotID, at).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, bound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust availability of spot %s: %w", spotID.String(), err)
	}

	return available, nil
}

func (r *bookingRepository) CreateWithHold(ctx context.Context, booking *entity.Booking) (int, error) {
	if err := booking.Validate(); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO bookings (id, booking_code, spot_id, user_id, start_time, end_time, hours,
		                      price_per_hour, total_amount, payment_status, booking_status,
		                      payment_method, transaction_ref, payment_deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	var remaining int
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		remaining, err = adjustAvailability(ctx, tx, booking.SpotID, -1, booking.CreatedAt)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, query,
			booking.ID,
			booking.BookingCode,
			booking.SpotID,
			booking.UserID,
			booking.StartTime,
			booking.EndTime,
			booking.Hours,
			booking.PricePerHour,
			booking.TotalAmount,
			booking.PaymentStatus,
			booking.BookingStatus,
			booking.PaymentMethod,
			booking.TransactionRef,
			booking.PaymentDeadline,
			booking.CreatedAt,
			booking.UpdatedAt,
		)
		return err
	})

	if errors.Is(err, ErrNoCapacity) {
		return 0, err
	}
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("booking_code", booking.BookingCode),
			zap.String("spot_id", booking.SpotID.String()),
			zap.String("user_id", booking.UserID.String()),
		)
		return 0, fmt.Errorf("create booking %s: %w", booking.BookingCode, err)
	}

	return remaining, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByCode(ctx context.Context, code string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_code = $1`

	booking, err := scanBooking(r.db.QueryRow(ctx, query, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by code",
			zap.Error(err),
			zap.String("booking_code", code),
		)
		return nil, fmt.Errorf("find booking by code %s: %w", code, err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	bookings, err := r.queryBookings(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find bookings by user ID %s: %w", userID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user ID %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) FindBySpotID(ctx context.Context, spotID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE spot_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	bookings, err := r.queryBookings(ctx, query, spotID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by spot ID",
			zap.Error(err),
			zap.String("spot_id", spotID.String()),
		)
		return nil, fmt.Errorf("find bookings by spot ID %s: %w", spotID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountBySpotID(ctx context.Context, spotID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE spot_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, spotID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by spot ID",
			zap.Error(err),
			zap.String("spot_id", spotID.String()),
		)
		return 0, fmt.Errorf("count bookings by spot ID %s: %w", spotID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) Transition(ctx context.Context, t BookingTransition) (*entity.Booking, error) {
	query := `
		UPDATE bookings
		SET booking_status = $4,
		    payment_status = $5,
		    payment_method = COALESCE($6, payment_method),
		    transaction_ref = COALESCE($7, transaction_ref),
		    cancelled_at = COALESCE($8, cancelled_at),
		    updated_at = $9
		WHERE id = $1 AND booking_status = $2 AND payment_status = $3
		RETURNING ` + bookingColumns

	var booking *entity.Booking
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		booking, err = scanBooking(tx.QueryRow(ctx, query,
			t.BookingID,
			t.FromBooking,
			t.FromPayment,
			t.ToBooking,
			t.ToPayment,
			t.PaymentMethod,
			t.TransactionRef,
			t.CancelledAt,
			t.At,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleState
		}
		if err != nil {
			return err
		}

		if !t.ReleaseHold {
			return nil
		}

		_, err = adjustAvailability(ctx, tx, booking.SpotID, 1, t.At)
		if errors.Is(err, ErrAtBound) {
			// counter already at total, keep the transition and report the drift
			r.log.Warn("Released hold on spot already at capacity",
				zap.String("booking_id", booking.ID.String()),
				zap.String("spot_id", booking.SpotID.String()),
			)
			return nil
		}
		return err
	})

	if errors.Is(err, ErrStaleState) {
		return nil, err
	}
	if err != nil {
		r.log.Error("Failed to transition booking",
			zap.Error(err),
			zap.String("booking_id", t.BookingID.String()),
			zap.String("to_booking_status", string(t.ToBooking)),
			zap.String("to_payment_status", string(t.ToPayment)),
		)
		return nil, fmt.Errorf("transition booking %s: %w", t.BookingID.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindExpiredUnpaid(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = 'active' AND payment_status = 'pending' AND payment_deadline <= $1
		ORDER BY payment_deadline
		LIMIT $2
	`

	bookings, err := r.queryBookings(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find expired unpaid bookings", zap.Error(err))
		return nil, fmt.Errorf("find expired unpaid bookings: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) FindEndedConfirmed(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE booking_status = 'active' AND payment_status = 'paid' AND end_time < $1
		ORDER BY end_time
		LIMIT $2
	`

	bookings, err := r.queryBookings(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find ended confirmed bookings", zap.Error(err))
		return nil, fmt.Errorf("find ended confirmed bookings: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.BookingCode,
		&booking.SpotID,
		&booking.UserID,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Hours,
		&booking.PricePerHour,
		&booking.TotalAmount,
		&booking.PaymentStatus,
		&booking.BookingStatus,
		&booking.PaymentMethod,
		&booking.TransactionRef,
		&booking.PaymentDeadline,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}
