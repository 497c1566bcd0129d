package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusActive    BookingStatus = "active"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodEsewa  PaymentMethod = "esewa"
	PaymentMethodKhalti PaymentMethod = "khalti"
	PaymentMethodCash   PaymentMethod = "cash"
)

// BookingState is the lifecycle state derived from booking and payment status.
type BookingState string

const (
	StatePending   BookingState = "PENDING"
	StateConfirmed BookingState = "CONFIRMED"
	StateCompleted BookingState = "COMPLETED"
	StateCancelled BookingState = "CANCELLED"
	StateExpired   BookingState = "EXPIRED"
)

var allowedTransitions = map[BookingState][]BookingState{
	StatePending:   {StateConfirmed, StateCancelled, StateExpired},
	StateConfirmed: {StateCompleted, StateCancelled},
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Terminal states have no outgoing transitions.
func (s BookingState) CanTransitionTo(next BookingState) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s BookingState) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

var ErrInvalidBooking = errors.New("invalid booking")

type Booking struct {
	BaseNoDelete
	BookingCode     string         `db:"booking_code"`
	SpotID          uuid.UUID      `db:"spot_id"`
	UserID          uuid.UUID      `db:"user_id"`
	StartTime       time.Time      `db:"start_time"`
	EndTime         time.Time      `db:"end_time"`
	Hours           int            `db:"hours"`
	PricePerHour    float64        `db:"price_per_hour"`
	TotalAmount     float64        `db:"total_amount"`
	PaymentStatus   PaymentStatus  `db:"payment_status"`
	BookingStatus   BookingStatus  `db:"booking_status"`
	PaymentMethod   *PaymentMethod `db:"payment_method"`
	TransactionRef  *string        `db:"transaction_ref"`
	PaymentDeadline time.Time      `db:"payment_deadline"`
	CancelledAt     *time.Time     `db:"cancelled_at"`
}

// State maps the stored status pair onto the lifecycle state machine.
func (b *Booking) State() BookingState {
	switch b.BookingStatus {
	case BookingStatusCompleted:
		return StateCompleted
	case BookingStatusCancelled:
		return StateCancelled
	case BookingStatusExpired:
		return StateExpired
	}
	if b.PaymentStatus == PaymentStatusPaid {
		return StateConfirmed
	}
	return StatePending
}

// HoldsReservation is true while the booking owns one unit of its spot's availability.
func (b *Booking) HoldsReservation() bool {
	return b.BookingStatus == BookingStatusActive
}

func (b *Booking) Validate() error {
	switch {
	case b.ID == uuid.Nil:
		return errors.Join(ErrInvalidBooking, errors.New("missing id"))
	case b.BookingCode == "":
		return errors.Join(ErrInvalidBooking, errors.New("missing booking code"))
	case b.SpotID == uuid.Nil || b.UserID == uuid.Nil:
		return errors.Join(ErrInvalidBooking, errors.New("missing spot or user reference"))
	case !b.EndTime.After(b.StartTime):
		return errors.Join(ErrInvalidBooking, errors.New("end time must be after start time"))
	case b.Hours < 1:
		return errors.Join(ErrInvalidBooking, errors.New("hours must be at least 1"))
	}

	switch b.BookingStatus {
	case BookingStatusActive, BookingStatusCompleted, BookingStatusCancelled, BookingStatusExpired:
	default:
		return errors.Join(ErrInvalidBooking, errors.New("unknown booking status "+string(b.BookingStatus)))
	}

	switch b.PaymentStatus {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
	default:
		return errors.Join(ErrInvalidBooking, errors.New("unknown payment status "+string(b.PaymentStatus)))
	}

	return nil
}
