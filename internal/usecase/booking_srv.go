package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/dto/response"
	"smart-parking/internal/events"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetSpotBookings(ctx context.Context, actor Actor, spotID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetQRPayload(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.QRResponse, error)
	CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error)

	// Transitions driven by payment callbacks and the sweep worker
	ConfirmPayment(ctx context.Context, bookingID uuid.UUID, transactionRef string, method entity.PaymentMethod) (*entity.Booking, error)
	ExpireUnpaidBooking(ctx context.Context, bookingID uuid.UUID) (expired bool, err error)
	CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error)
}

// a compare-and-set that keeps losing to concurrent writers is retried this many times
const transitionAttempts = 3

type bookingService struct {
	repo   *repository.Repository
	cfg    utils.BookingConfig
	clock  Clock
	events events.Publisher
	log    *zap.Logger
}

func NewBookingService(repo *repository.Repository, cfg utils.BookingConfig, deps Dependencies, log *zap.Logger) BookingService {
	if cfg.PaymentWindowMinutes <= 0 {
		cfg.PaymentWindowMinutes = 10
	}
	if cfg.MaxHours <= 0 {
		cfg.MaxHours = 24
	}

	return &bookingService{
		repo:   repo,
		cfg:    cfg,
		clock:  deps.Clock,
		events: deps.Events,
		log:    log.With(zap.String("service", "booking")),
	}
}

// CalculateHours returns the billable hours for a slot. Partial hours round up.
func CalculateHours(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

func CalculateTotalAmount(pricePerHour float64, hours int) float64 {
	return utils.RoundMoney(pricePerHour * float64(hours))
}

// ValidateTimeSlot rejects slots in the past, empty or inverted slots, and slots longer
// than maxHours billable hours.
func ValidateTimeSlot(now, start, end time.Time, maxHours int) error {
	if start.Before(now) {
		return fmt.Errorf("%w: start time cannot be in the past", ErrInvalidTimeRange)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTimeRange)
	}
	if CalculateHours(start, end) > maxHours {
		return fmt.Errorf("%w: booking cannot exceed %d hours", ErrInvalidTimeRange, maxHours)
	}
	return nil
}

func (s *bookingService) CreateBooking(ctx context.Context, userID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		bookingRejections.WithLabelValues("validation").Inc()
		return nil, err
	}

	spotID, err := uuid.Parse(req.SpotID)
	if err != nil {
		return nil, invalidField("spot_id", "Must be a valid UUID")
	}

	now := s.clock.Now()
	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	if err := ValidateTimeSlot(now, start, end, s.cfg.MaxHours); err != nil {
		bookingRejections.WithLabelValues("time_range").Inc()
		return nil, err
	}

	spot, err := s.repo.Spot.FindByID(ctx, spotID)
	if err != nil {
		return nil, storeError("find spot", err)
	}
	if spot == nil {
		return nil, ErrSpotNotFound
	}
	if !spot.HasCapacity() {
		bookingRejections.WithLabelValues("unavailable").Inc()
		return nil, ErrSpotUnavailable
	}

	hours := CalculateHours(start, end)
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingCode:     utils.GenerateBookingCode(now),
		SpotID:          spot.ID,
		UserID:          userID,
		StartTime:       start,
		EndTime:         end,
		Hours:           hours,
		PricePerHour:    spot.PricePerHour,
		TotalAmount:     CalculateTotalAmount(spot.PricePerHour, hours),
		PaymentStatus:   entity.PaymentStatusPending,
		BookingStatus:   entity.BookingStatusActive,
		PaymentDeadline: now.Add(time.Duration(s.cfg.PaymentWindowMinutes) * time.Minute),
	}

	remaining, err := s.repo.Booking.CreateWithHold(ctx, booking)
	if errors.Is(err, repository.ErrNoCapacity) {
		bookingRejections.WithLabelValues("unavailable").Inc()
		return nil, ErrSpotUnavailable
	}
	if err != nil {
		return nil, storeError("create booking", err)
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("booking_code", booking.BookingCode),
		zap.String("spot_id", spot.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("hours", hours),
		zap.Float64("total_amount", booking.TotalAmount),
		zap.Int("available_spots", remaining),
	)
	bookingTransitions.WithLabelValues(string(entity.StatePending)).Inc()
	s.publish(ctx, events.BookingCreated, booking)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	page, limit := pageOf(req)

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, limit, utils.CalculateOffset(page, limit))
	if err != nil {
		return nil, storeError("find user bookings", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID)
	if err != nil {
		return nil, storeError("count user bookings", err)
	}

	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), page, limit, total), nil
}

func (s *bookingService) GetSpotBookings(ctx context.Context, actor Actor, spotID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	spot, err := s.repo.Spot.FindByID(ctx, spotID)
	if err != nil {
		return nil, storeError("find spot", err)
	}
	if spot == nil {
		return nil, ErrSpotNotFound
	}
	if !actor.IsAdmin() && spot.OwnerID != actor.ID {
		return nil, ErrForbidden
	}

	page, limit := pageOf(req)

	bookings, err := s.repo.Booking.FindBySpotID(ctx, spotID, limit, utils.CalculateOffset(page, limit))
	if err != nil {
		return nil, storeError("find spot bookings", err)
	}

	total, err := s.repo.Booking.CountBySpotID(ctx, spotID)
	if err != nil {
		return nil, storeError("count spot bookings", err)
	}

	return response.NewPaginatedResponse(response.BookingsToResponse(bookings), page, limit, total), nil
}

// GetQRPayload is only available once the booking is paid for.
func (s *bookingService) GetQRPayload(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.QRResponse, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}
	if booking.State() != entity.StateConfirmed {
		return nil, fmt.Errorf("%w: qr code requires a confirmed booking, got %s", ErrInvalidTransition, booking.State())
	}

	payload := entity.NewQRPayload(booking)
	encoded, err := entity.EncodeQRPayload(payload)
	if err != nil {
		return nil, err
	}

	return &response.QRResponse{Payload: payload, Encoded: encoded}, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor Actor, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, booking); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	updated, changed, err := s.runTransition(ctx, bookingID, func(b *entity.Booking) (*repository.BookingTransition, error) {
		if !b.State().CanTransitionTo(entity.StateCancelled) {
			return nil, fmt.Errorf("%w: cannot cancel %s booking", ErrInvalidTransition, b.State())
		}

		toPayment := b.PaymentStatus
		if b.PaymentStatus == entity.PaymentStatusPaid {
			toPayment = entity.PaymentStatusRefunded
		}

		return &repository.BookingTransition{
			BookingID:   b.ID,
			FromBooking: b.BookingStatus,
			FromPayment: b.PaymentStatus,
			ToBooking:   entity.BookingStatusCancelled,
			ToPayment:   toPayment,
			CancelledAt: &now,
			ReleaseHold: true,
			At:          now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("Booking cancelled",
			zap.String("booking_id", updated.ID.String()),
			zap.String("actor_id", actor.ID.String()),
			zap.String("payment_status", string(updated.PaymentStatus)),
		)
		bookingTransitions.WithLabelValues(string(entity.StateCancelled)).Inc()
		s.publish(ctx, events.BookingCancelled, updated)
	}

	resp := response.BookingToResponse(updated)
	return &resp, nil
}

// ConfirmPayment marks a pending booking paid. Confirming an already paid booking is a
// no-op so duplicate gateway callbacks are harmless.
func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID uuid.UUID, transactionRef string, method entity.PaymentMethod) (*entity.Booking, error) {
	now := s.clock.Now()
	updated, changed, err := s.runTransition(ctx, bookingID, func(b *entity.Booking) (*repository.BookingTransition, error) {
		if b.State() == entity.StateConfirmed {
			return nil, nil
		}
		if b.State() != entity.StatePending || b.PaymentStatus != entity.PaymentStatusPending {
			return nil, fmt.Errorf("%w: cannot confirm payment for %s booking", ErrInvalidTransition, b.State())
		}

		return &repository.BookingTransition{
			BookingID:      b.ID,
			FromBooking:    entity.BookingStatusActive,
			FromPayment:    entity.PaymentStatusPending,
			ToBooking:      entity.BookingStatusActive,
			ToPayment:      entity.PaymentStatusPaid,
			PaymentMethod:  &method,
			TransactionRef: &transactionRef,
			At:             now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("Booking payment confirmed",
			zap.String("booking_id", updated.ID.String()),
			zap.String("method", string(method)),
			zap.String("transaction_ref", transactionRef),
		)
		bookingTransitions.WithLabelValues(string(entity.StateConfirmed)).Inc()
		s.publish(ctx, events.BookingPaid, updated)
	}

	return updated, nil
}

// ExpireUnpaidBooking releases the hold of a booking whose payment window has passed.
// Anything that is not an overdue pending booking is left untouched.
func (s *bookingService) ExpireUnpaidBooking(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	now := s.clock.Now()
	updated, changed, err := s.runTransition(ctx, bookingID, func(b *entity.Booking) (*repository.BookingTransition, error) {
		if b.State() != entity.StatePending || now.Before(b.PaymentDeadline) {
			return nil, nil
		}

		return &repository.BookingTransition{
			BookingID:   b.ID,
			FromBooking: entity.BookingStatusActive,
			FromPayment: b.PaymentStatus,
			ToBooking:   entity.BookingStatusExpired,
			ToPayment:   entity.PaymentStatusFailed,
			ReleaseHold: true,
			At:          now,
		}, nil
	})
	if err != nil {
		return false, err
	}

	if changed {
		s.log.Info("Booking expired",
			zap.String("booking_id", updated.ID.String()),
			zap.Time("payment_deadline", updated.PaymentDeadline),
		)
		bookingTransitions.WithLabelValues(string(entity.StateExpired)).Inc()
		s.publish(ctx, events.BookingExpired, updated)
	}

	return changed, nil
}

// CompleteBooking closes a paid booking after its slot ended. Availability is left as is.
func (s *bookingService) CompleteBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	now := s.clock.Now()
	updated, changed, err := s.runTransition(ctx, bookingID, func(b *entity.Booking) (*repository.BookingTransition, error) {
		if b.State() != entity.StateConfirmed {
			return nil, fmt.Errorf("%w: cannot complete %s booking", ErrInvalidTransition, b.State())
		}
		if !now.After(b.EndTime) {
			return nil, fmt.Errorf("%w: booking has not ended yet", ErrInvalidTransition)
		}

		return &repository.BookingTransition{
			BookingID:   b.ID,
			FromBooking: entity.BookingStatusActive,
			FromPayment: entity.PaymentStatusPaid,
			ToBooking:   entity.BookingStatusCompleted,
			ToPayment:   entity.PaymentStatusPaid,
			At:          now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("Booking completed", zap.String("booking_id", updated.ID.String()))
		bookingTransitions.WithLabelValues(string(entity.StateCompleted)).Inc()
		s.publish(ctx, events.BookingCompleted, updated)
	}

	return updated, nil
}

// transitionPlan inspects the current booking and returns the change to apply, or nil
// when the booking is already where the caller wants it.
type transitionPlan func(b *entity.Booking) (*repository.BookingTransition, error)

// runTransition applies plan with compare-and-set semantics. When another writer moved
// the booking first, the booking is re-read and the plan evaluated again.
func (s *bookingService) runTransition(ctx context.Context, bookingID uuid.UUID, plan transitionPlan) (*entity.Booking, bool, error) {
	for attempt := 0; attempt < transitionAttempts; attempt++ {
		current, err := s.load(ctx, bookingID)
		if err != nil {
			return nil, false, err
		}

		t, err := plan(current)
		if err != nil {
			return nil, false, err
		}
		if t == nil {
			return current, false, nil
		}

		updated, err := s.repo.Booking.Transition(ctx, *t)
		if errors.Is(err, repository.ErrStaleState) {
			s.log.Debug("Booking changed concurrently, retrying",
				zap.String("booking_id", bookingID.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, false, storeError("transition booking", err)
		}

		return updated, true, nil
	}

	return nil, false, fmt.Errorf("%w: booking %s kept changing", ErrInvalidTransition, bookingID.String())
}

func (s *bookingService) load(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, storeError("find booking", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	return booking, nil
}

// authorize admits the booking's user, the owner of the booked spot, and admins.
func (s *bookingService) authorize(ctx context.Context, actor Actor, b *entity.Booking) error {
	if actor.IsAdmin() || actor.ID == b.UserID {
		return nil
	}

	if actor.Role == entity.RoleOwner {
		spot, err := s.repo.Spot.FindByID(ctx, b.SpotID)
		if err != nil {
			return storeError("find spot", err)
		}
		if spot != nil && spot.OwnerID == actor.ID {
			return nil
		}
	}

	return ErrForbidden
}

func (s *bookingService) publish(ctx context.Context, t events.EventType, b *entity.Booking) {
	if err := s.events.Publish(ctx, events.NewBookingEvent(t, b, s.clock.Now())); err != nil {
		s.log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("type", string(t)),
			zap.String("booking_id", b.ID.String()),
		)
	}
}

func pageOf(req *request.PaginatedRequest) (page, limit int) {
	if req == nil {
		return 1, 10
	}
	page = req.Page
	if page < 1 {
		page = 1
	}
	return page, req.Limit()
}
