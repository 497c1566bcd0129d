package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateHours(t *testing.T) {
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"exact hour", time.Hour, 1},
		{"one minute over", 61 * time.Minute, 2},
		{"two and a half hours", 150 * time.Minute, 3},
		{"empty slot", 0, 0},
		{"inverted slot", -time.Hour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateHours(start, start.Add(tc.d)))
		})
	}
}

func TestCalculateTotalAmount(t *testing.T) {
	assert.Equal(t, 100.0, CalculateTotalAmount(50, 2))
	assert.Equal(t, 0.3, CalculateTotalAmount(0.1, 3))
}

func TestValidateTimeSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	start := now.Add(time.Hour)

	require.NoError(t, ValidateTimeSlot(now, start, start.Add(90*time.Minute), 24))
	require.NoError(t, ValidateTimeSlot(now, now, now.Add(time.Hour), 24))

	assert.ErrorIs(t, ValidateTimeSlot(now, start, start, 24), ErrInvalidTimeRange)
	assert.ErrorIs(t, ValidateTimeSlot(now, start, start.Add(-time.Minute), 24), ErrInvalidTimeRange)
	assert.ErrorIs(t, ValidateTimeSlot(now, now.Add(-time.Minute), start, 24), ErrInvalidTimeRange)
	assert.ErrorIs(t, ValidateTimeSlot(now, start, start.Add(24*time.Hour+time.Second), 24), ErrInvalidTimeRange)
}

func (e *testEnv) book(t *testing.T, userID, spotID uuid.UUID, start, end time.Time) uuid.UUID {
	t.Helper()
	resp, err := e.svc.Booking.CreateBooking(context.Background(), userID, &request.CreateBookingRequest{
		SpotID:    spotID.String(),
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func TestBookingLifecycle_HoldConfirmAndLateSweep(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 1, 1)
	userID := uuid.New()

	resp, err := env.svc.Booking.CreateBooking(ctx, userID, &request.CreateBookingRequest{
		SpotID:    spot.ID.String(),
		StartTime: env.at(10, 0),
		EndTime:   env.at(12, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Hours)
	assert.Equal(t, 150.0, resp.TotalAmount)
	assert.Equal(t, entity.StatePending, resp.State)
	assert.Equal(t, entity.PaymentStatusPending, resp.PaymentStatus)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), resp.PaymentDeadline)
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots)

	bookingID := uuid.MustParse(resp.ID)
	confirmed, err := env.svc.Booking.ConfirmPayment(ctx, bookingID, "ESEWA-123", entity.PaymentMethodEsewa)
	require.NoError(t, err)
	assert.Equal(t, entity.StateConfirmed, confirmed.State())
	require.NotNil(t, confirmed.TransactionRef)
	assert.Equal(t, "ESEWA-123", *confirmed.TransactionRef)

	env.clock.Advance(11 * time.Minute)
	expired, err := env.svc.Booking.ExpireUnpaidBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.False(t, expired)

	stored := env.db.booking(bookingID)
	assert.Equal(t, entity.BookingStatusActive, stored.BookingStatus)
	assert.Equal(t, entity.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots)

	assert.Equal(t, []events.EventType{events.BookingCreated, events.BookingPaid}, env.events.types())
}

func TestCreateBooking_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	full := env.addSpot(t, 50, 2, 0)
	open := env.addSpot(t, 50, 2, 2)

	_, err := env.svc.Booking.CreateBooking(ctx, uuid.New(), &request.CreateBookingRequest{
		SpotID:    full.ID.String(),
		StartTime: env.at(10, 0),
		EndTime:   env.at(11, 0),
	})
	assert.ErrorIs(t, err, ErrSpotUnavailable)

	_, err = env.svc.Booking.CreateBooking(ctx, uuid.New(), &request.CreateBookingRequest{
		SpotID:    uuid.NewString(),
		StartTime: env.at(10, 0),
		EndTime:   env.at(11, 0),
	})
	assert.ErrorIs(t, err, ErrSpotNotFound)

	_, err = env.svc.Booking.CreateBooking(ctx, uuid.New(), &request.CreateBookingRequest{
		SpotID:    open.ID.String(),
		StartTime: env.at(11, 0),
		EndTime:   env.at(11, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = env.svc.Booking.CreateBooking(ctx, uuid.New(), &request.CreateBookingRequest{
		SpotID:    open.ID.String(),
		StartTime: env.at(8, 0),
		EndTime:   env.at(11, 0),
	})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = env.svc.Booking.CreateBooking(ctx, uuid.New(), &request.CreateBookingRequest{
		SpotID:    "not-a-uuid",
		StartTime: env.at(10, 0),
		EndTime:   env.at(11, 0),
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "spot_id")

	// rejected requests leave inventory untouched
	assert.Equal(t, 2, env.db.spot(open.ID).AvailableSpots)
	assert.Empty(t, env.events.types())
}

func TestCreateBooking_ConcurrentRequestsNeverOversell(t *testing.T) {
	env := newTestEnv(t, nil)
	spot := env.addSpot(t, 50, 1, 1)

	const workers = 20
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		succeeded   int
		unavailable int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Booking.CreateBooking(context.Background(), uuid.New(), &request.CreateBookingRequest{
				SpotID:    spot.ID.String(),
				StartTime: env.at(10, 0),
				EndTime:   env.at(11, 0),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrSpotUnavailable):
				unavailable++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, unavailable)
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots)
}

func TestCancelBooking_ReleasesHoldOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 3, 3)
	user := Actor{ID: uuid.New(), Role: entity.RoleUser}

	bookingID := env.book(t, user.ID, spot.ID, env.at(10, 0), env.at(11, 0))
	assert.Equal(t, 2, env.db.spot(spot.ID).AvailableSpots)

	resp, err := env.svc.Booking.CancelBooking(ctx, user, bookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCancelled, resp.State)
	assert.Equal(t, entity.PaymentStatusPending, resp.PaymentStatus)
	require.NotNil(t, resp.CancelledAt)
	assert.Equal(t, 3, env.db.spot(spot.ID).AvailableSpots)

	_, err = env.svc.Booking.CancelBooking(ctx, user, bookingID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 3, env.db.spot(spot.ID).AvailableSpots)
}

func TestCancelBooking_PaidBookingIsRefunded(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 80, 1, 1)
	user := Actor{ID: uuid.New(), Role: entity.RoleUser}

	bookingID := env.book(t, user.ID, spot.ID, env.at(10, 0), env.at(11, 0))
	_, err := env.svc.Booking.ConfirmPayment(ctx, bookingID, "KHALTI-9", entity.PaymentMethodKhalti)
	require.NoError(t, err)

	resp, err := env.svc.Booking.CancelBooking(ctx, user, bookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, resp.BookingStatus)
	assert.Equal(t, entity.PaymentStatusRefunded, resp.PaymentStatus)
	assert.Equal(t, 1, env.db.spot(spot.ID).AvailableSpots)
}

func TestCancelBooking_Authorization(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 2, 2)
	user := Actor{ID: uuid.New(), Role: entity.RoleUser}

	bookingID := env.book(t, user.ID, spot.ID, env.at(10, 0), env.at(11, 0))

	stranger := Actor{ID: uuid.New(), Role: entity.RoleUser}
	_, err := env.svc.Booking.CancelBooking(ctx, stranger, bookingID)
	assert.ErrorIs(t, err, ErrForbidden)

	otherOwner := Actor{ID: uuid.New(), Role: entity.RoleOwner}
	_, err = env.svc.Booking.GetBooking(ctx, otherOwner, bookingID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.svc.Booking.GetBooking(ctx, env.owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingID.String(), got.ID)

	resp, err := env.svc.Booking.CancelBooking(ctx, env.owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCancelled, resp.State)

	_, err = env.svc.Booking.CancelBooking(ctx, user, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestExpireUnpaidBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 1, 1)

	bookingID := env.book(t, uuid.New(), spot.ID, env.at(10, 0), env.at(11, 0))

	expired, err := env.svc.Booking.ExpireUnpaidBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.False(t, expired, "payment window still open")
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots)

	env.clock.Advance(10 * time.Minute)
	expired, err = env.svc.Booking.ExpireUnpaidBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.True(t, expired)

	stored := env.db.booking(bookingID)
	assert.Equal(t, entity.StateExpired, stored.State())
	assert.Equal(t, entity.PaymentStatusFailed, stored.PaymentStatus)
	assert.Equal(t, 1, env.db.spot(spot.ID).AvailableSpots)

	expired, err = env.svc.Booking.ExpireUnpaidBooking(ctx, bookingID)
	require.NoError(t, err)
	assert.False(t, expired)
	assert.Equal(t, 1, env.db.spot(spot.ID).AvailableSpots)

	_, err = env.svc.Booking.ConfirmPayment(ctx, bookingID, "late", entity.PaymentMethodEsewa)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, []events.EventType{events.BookingCreated, events.BookingExpired}, env.events.types())
}

func TestConfirmPayment_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 1, 1)

	bookingID := env.book(t, uuid.New(), spot.ID, env.at(10, 0), env.at(11, 0))

	first, err := env.svc.Booking.ConfirmPayment(ctx, bookingID, "ref-1", entity.PaymentMethodEsewa)
	require.NoError(t, err)
	second, err := env.svc.Booking.ConfirmPayment(ctx, bookingID, "ref-2", entity.PaymentMethodEsewa)
	require.NoError(t, err)

	assert.Equal(t, entity.StateConfirmed, second.State())
	assert.Equal(t, *first.TransactionRef, *second.TransactionRef)
	assert.Equal(t, []events.EventType{events.BookingCreated, events.BookingPaid}, env.events.types())
}

func TestCompleteBooking(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 1, 1)

	pending := env.book(t, uuid.New(), spot.ID, env.at(10, 0), env.at(11, 0))
	_, err := env.svc.Booking.CompleteBooking(ctx, pending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.Booking.ConfirmPayment(ctx, pending, "ref", entity.PaymentMethodEsewa)
	require.NoError(t, err)

	_, err = env.svc.Booking.CompleteBooking(ctx, pending)
	assert.ErrorIs(t, err, ErrInvalidTransition, "slot has not ended")

	env.clock.Advance(2*time.Hour + time.Minute)
	done, err := env.svc.Booking.CompleteBooking(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, done.State())
	assert.Equal(t, entity.PaymentStatusPaid, done.PaymentStatus)
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots, "completion keeps the hold")

	_, err = env.svc.Booking.CancelBooking(ctx, env.owner, pending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, env.db.spot(spot.ID).AvailableSpots)
}

func TestGetQRPayload(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 1, 1)
	user := Actor{ID: uuid.New(), Role: entity.RoleUser}

	bookingID := env.book(t, user.ID, spot.ID, env.at(10, 0), env.at(11, 0))

	_, err := env.svc.Booking.GetQRPayload(ctx, user, bookingID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.svc.Booking.ConfirmPayment(ctx, bookingID, "ref", entity.PaymentMethodEsewa)
	require.NoError(t, err)

	qr, err := env.svc.Booking.GetQRPayload(ctx, user, bookingID)
	require.NoError(t, err)

	decoded, err := entity.DecodeQRPayload(qr.Encoded)
	require.NoError(t, err)
	assert.Equal(t, qr.Payload, decoded)
	assert.Equal(t, env.db.booking(bookingID).BookingCode, decoded.BookingCode)
	assert.Equal(t, spot.ID.String(), decoded.SpotID)
}

func TestBookingListings(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	spot := env.addSpot(t, 50, 5, 5)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		env.book(t, userID, spot.ID, env.at(10, 0), env.at(11, 0))
		env.clock.Advance(time.Second)
	}
	env.book(t, uuid.New(), spot.ID, env.at(10, 0), env.at(11, 0))

	page, err := env.svc.Booking.GetUserBookings(ctx, userID, &request.PaginatedRequest{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	_, err = env.svc.Booking.GetSpotBookings(ctx, Actor{ID: uuid.New(), Role: entity.RoleOwner}, spot.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	all, err := env.svc.Booking.GetSpotBookings(ctx, env.owner, spot.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), all.Pagination.Total)
}

func TestBookingService_StoreFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	spot := env.addSpot(t, 50, 1, 1)
	env.db.fail = errors.New("connection refused")

	_, err := env.svc.Booking.CreateBooking(context.Background(), uuid.New(), &request.CreateBookingRequest{
		SpotID:    spot.ID.String(),
		StartTime: env.at(10, 0),
		EndTime:   env.at(11, 0),
	})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = env.svc.Booking.ExpireUnpaidBooking(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
