package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentAttemptStatus string

const (
	PaymentAttemptInitiated PaymentAttemptStatus = "initiated"
	PaymentAttemptSucceeded PaymentAttemptStatus = "succeeded"
	PaymentAttemptFailed    PaymentAttemptStatus = "failed"
)

// PaymentAttempt is one initiate/callback round trip with a wallet gateway,
// correlated by Token.
type PaymentAttempt struct {
	BaseSimple
	Token      string               `db:"token"`
	BookingID  uuid.UUID            `db:"booking_id"`
	UserID     uuid.UUID            `db:"user_id"`
	Method     PaymentMethod        `db:"method"`
	Amount     float64              `db:"amount"`
	Status     PaymentAttemptStatus `db:"status"`
	GatewayRef *string              `db:"gateway_ref"`
	Reason     *string              `db:"reason"`
	ResolvedAt *time.Time           `db:"resolved_at"`
}

func (p *PaymentAttempt) IsResolved() bool {
	return p.Status != PaymentAttemptInitiated
}
