package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, attempt *entity.PaymentAttempt) error
	FindByToken(ctx context.Context, token string) (*entity.PaymentAttempt, error)

	// Resolve moves an initiated attempt to its final status. resolved is false when the
	// attempt was already resolved by an earlier callback.
	Resolve(ctx context.Context, token string, status entity.PaymentAttemptStatus, gatewayRef, reason *string, at time.Time) (resolved bool, err error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) Create(ctx context.Context, attempt *entity.PaymentAttempt) error {
	query := `
		INSERT INTO payment_attempts (id, token, booking_id, user_id, method, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		attempt.ID,
		attempt.Token,
		attempt.BookingID,
		attempt.UserID,
		attempt.Method,
		attempt.Amount,
		attempt.Status,
		attempt.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment attempt",
			zap.Error(err),
			zap.String("booking_id", attempt.BookingID.String()),
			zap.String("method", string(attempt.Method)),
		)
		return fmt.Errorf("create payment attempt for booking %s: %w", attempt.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByToken(ctx context.Context, token string) (*entity.PaymentAttempt, error) {
	query := `
		SELECT id, token, booking_id, user_id, method, amount, status, gateway_ref, reason,
		       created_at, resolved_at
		FROM payment_attempts
		WHERE token = $1
	`

	var attempt entity.PaymentAttempt
	err := r.db.QueryRow(ctx, query, token).Scan(
		&attempt.ID,
		&attempt.Token,
		&attempt.BookingID,
		&attempt.UserID,
		&attempt.Method,
		&attempt.Amount,
		&attempt.Status,
		&attempt.GatewayRef,
		&attempt.Reason,
		&attempt.CreatedAt,
		&attempt.ResolvedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment attempt by token",
			zap.Error(err),
			zap.String("token", token),
		)
		return nil, fmt.Errorf("find payment attempt by token %s: %w", token, err)
	}

	return &attempt, nil
}

func (r *paymentRepository) Resolve(ctx context.Context, token string, status entity.PaymentAttemptStatus, gatewayRef, reason *string, at time.Time) (bool, error) {
	query := `
		UPDATE payment_attempts
		SET status = $2, gateway_ref = $3, reason = $4, resolved_at = $5
		WHERE token = $1 AND status = 'initiated'
	`

	tag, err := r.db.Exec(ctx, query, token, status, gatewayRef, reason, at)
	if err != nil {
		r.log.Error("Failed to resolve payment attempt",
			zap.Error(err),
			zap.String("token", token),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("resolve payment attempt %s: %w", token, err)
	}

	return tag.RowsAffected() == 1, nil
}
