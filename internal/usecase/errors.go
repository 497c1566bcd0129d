package usecase

import (
	"errors"
	"fmt"

	"smart-parking/pkg/utils"
)

var (
	ErrInvalidTimeRange    = errors.New("invalid time range")
	ErrSpotUnavailable     = errors.New("no spots available")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrInvalidTransition   = errors.New("invalid booking state transition")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrSpotNotFound        = errors.New("spot not found")
	ErrSpotInUse           = errors.New("spot has active bookings")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailTaken          = errors.New("email already registered")
	ErrPaymentWindowClosed = errors.New("payment window closed")
)

// ValidationError carries per-field messages. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + utils.FormatValidationErrors(e.Fields)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validate(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// storeError marks a repository failure so callers can map it to a retryable response.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
