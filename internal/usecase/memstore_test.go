package usecase

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/events"
	"smart-parking/internal/payment"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memDB mirrors the SQL guarantees the services rely on: guarded availability updates
// and compare-and-set status transitions, all under one lock.
type memDB struct {
	mu       sync.Mutex
	users    map[uuid.UUID]entity.User
	spots    map[uuid.UUID]entity.Spot
	bookings map[uuid.UUID]entity.Booking
	ratings  []entity.Rating
	attempts map[string]entity.PaymentAttempt
	fail     error
}

func newMemDB() *memDB {
	return &memDB{
		users:    make(map[uuid.UUID]entity.User),
		spots:    make(map[uuid.UUID]entity.Spot),
		bookings: make(map[uuid.UUID]entity.Booking),
		attempts: make(map[string]entity.PaymentAttempt),
	}
}

func (db *memDB) repository() *repository.Repository {
	return &repository.Repository{
		User:    memUsers{db},
		Spot:    memSpots{db},
		Booking: memBookings{db},
		Rating:  memRatings{db},
		Payment: memPayments{db},
	}
}

func (db *memDB) spot(id uuid.UUID) entity.Spot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.spots[id]
}

// booking returns a copy of the stored row
func (db *memDB) booking(id uuid.UUID) *entity.Booking {
	db.mu.Lock()
	defer db.mu.Unlock()
	b := db.bookings[id]
	return &b
}

type memUsers struct{ db *memDB }

func (m memUsers) Create(_ context.Context, user *entity.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return m.db.fail
	}
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	m.db.users[user.ID] = *user
	return nil
}

func (m memUsers) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	u, ok := m.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	for _, u := range m.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

type memSpots struct{ db *memDB }

func (m memSpots) Create(_ context.Context, spot *entity.Spot) error {
	if err := spot.Validate(); err != nil {
		return err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return m.db.fail
	}
	m.db.spots[spot.ID] = *spot
	return nil
}

func (m memSpots) FindByID(_ context.Context, id uuid.UUID) (*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	s, ok := m.db.spots[id]
	if !ok || s.DeletedAt != nil {
		return nil, nil
	}
	return &s, nil
}

func (m memSpots) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*entity.Spot
	for _, id := range ids {
		if s, ok := m.db.spots[id]; ok && s.DeletedAt == nil {
			out = append(out, &s)
		}
	}
	return out, nil
}

func (m memSpots) live() []*entity.Spot {
	var out []*entity.Spot
	for _, s := range m.db.spots {
		if s.DeletedAt == nil {
			s := s
			out = append(out, &s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m memSpots) FindAll(_ context.Context, limit, offset int) ([]*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	return paginate(m.live(), limit, offset), nil
}

func (m memSpots) CountAll(_ context.Context) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.live())), nil
}

func (m memSpots) FindByOwnerID(_ context.Context, ownerID uuid.UUID) ([]*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*entity.Spot
	for _, s := range m.live() {
		if s.OwnerID == ownerID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m memSpots) Update(_ context.Context, spot *entity.Spot) (*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	current, ok := m.db.spots[spot.ID]
	if !ok || current.DeletedAt != nil {
		return nil, nil
	}
	current.Name = spot.Name
	current.Address = spot.Address
	current.Description = spot.Description
	current.PricePerHour = spot.PricePerHour
	current.Latitude = spot.Latitude
	current.Longitude = spot.Longitude
	current.Amenities = spot.Amenities
	current.OpenTime = spot.OpenTime
	current.CloseTime = spot.CloseTime
	current.UpdatedAt = spot.UpdatedAt
	m.db.spots[spot.ID] = current
	return &current, nil
}

func (m memSpots) SoftDelete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.spots[id]
	if !ok || s.DeletedAt != nil {
		return false, nil
	}
	for _, b := range m.db.bookings {
		if b.SpotID == id && b.BookingStatus == entity.BookingStatusActive {
			return false, nil
		}
	}
	s.DeletedAt = &at
	m.db.spots[id] = s
	return true, nil
}

type memBookings struct{ db *memDB }

func (m memBookings) CreateWithHold(_ context.Context, booking *entity.Booking) (int, error) {
	if err := booking.Validate(); err != nil {
		return 0, err
	}
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return 0, m.db.fail
	}
	s, ok := m.db.spots[booking.SpotID]
	if !ok || s.DeletedAt != nil || s.AvailableSpots <= 0 {
		return 0, repository.ErrNoCapacity
	}
	s.AvailableSpots--
	m.db.spots[s.ID] = s
	m.db.bookings[booking.ID] = *booking
	return s.AvailableSpots, nil
}

func (m memBookings) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	b, ok := m.db.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m memBookings) FindByCode(_ context.Context, code string) (*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, b := range m.db.bookings {
		if b.BookingCode == code {
			return &b, nil
		}
	}
	return nil, nil
}

func (m memBookings) filter(keep func(entity.Booking) bool) []*entity.Booking {
	var out []*entity.Booking
	for _, b := range m.db.bookings {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m memBookings) FindByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return paginate(m.filter(func(b entity.Booking) bool { return b.UserID == userID }), limit, offset), nil
}

func (m memBookings) CountByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.filter(func(b entity.Booking) bool { return b.UserID == userID }))), nil
}

func (m memBookings) FindBySpotID(_ context.Context, spotID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return paginate(m.filter(func(b entity.Booking) bool { return b.SpotID == spotID }), limit, offset), nil
}

func (m memBookings) CountBySpotID(_ context.Context, spotID uuid.UUID) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return int64(len(m.filter(func(b entity.Booking) bool { return b.SpotID == spotID }))), nil
}

func (m memBookings) Transition(_ context.Context, t repository.BookingTransition) (*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.fail != nil {
		return nil, m.db.fail
	}
	b, ok := m.db.bookings[t.BookingID]
	if !ok || b.BookingStatus != t.FromBooking || b.PaymentStatus != t.FromPayment {
		return nil, repository.ErrStaleState
	}

	b.BookingStatus = t.ToBooking
	b.PaymentStatus = t.ToPayment
	if t.PaymentMethod != nil {
		b.PaymentMethod = t.PaymentMethod
	}
	if t.TransactionRef != nil {
		b.TransactionRef = t.TransactionRef
	}
	if t.CancelledAt != nil {
		b.CancelledAt = t.CancelledAt
	}
	b.UpdatedAt = t.At
	m.db.bookings[b.ID] = b

	if t.ReleaseHold {
		if s, ok := m.db.spots[b.SpotID]; ok && s.AvailableSpots < s.TotalSpots {
			s.AvailableSpots++
			m.db.spots[s.ID] = s
		}
	}
	return &b, nil
}

func (m memBookings) FindExpiredUnpaid(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return paginate(m.filter(func(b entity.Booking) bool {
		return b.BookingStatus == entity.BookingStatusActive &&
			b.PaymentStatus == entity.PaymentStatusPending &&
			!b.PaymentDeadline.After(now)
	}), limit, 0), nil
}

func (m memBookings) FindEndedConfirmed(_ context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return paginate(m.filter(func(b entity.Booking) bool {
		return b.BookingStatus == entity.BookingStatusActive &&
			b.PaymentStatus == entity.PaymentStatusPaid &&
			b.EndTime.Before(now)
	}), limit, 0), nil
}

type memRatings struct{ db *memDB }

func (m memRatings) CreateAndApply(_ context.Context, rating *entity.Rating) (*entity.Spot, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.spots[rating.SpotID]
	if !ok || s.DeletedAt != nil {
		return nil, nil
	}
	avg := (s.Rating*float64(s.TotalRatings) + float64(rating.Rating)) / float64(s.TotalRatings+1)
	s.Rating = math.Round(avg*100) / 100
	s.TotalRatings++
	m.db.spots[s.ID] = s
	m.db.ratings = append(m.db.ratings, *rating)
	return &s, nil
}

func (m memRatings) FindBySpotID(_ context.Context, spotID uuid.UUID, limit int) ([]*entity.Rating, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []*entity.Rating
	for i := len(m.db.ratings) - 1; i >= 0 && len(out) < limit; i-- {
		if r := m.db.ratings[i]; r.SpotID == spotID {
			out = append(out, &r)
		}
	}
	return out, nil
}

type memPayments struct{ db *memDB }

func (m memPayments) Create(_ context.Context, attempt *entity.PaymentAttempt) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	m.db.attempts[attempt.Token] = *attempt
	return nil
}

func (m memPayments) FindByToken(_ context.Context, token string) (*entity.PaymentAttempt, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.attempts[token]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m memPayments) Resolve(_ context.Context, token string, status entity.PaymentAttemptStatus, gatewayRef, reason *string, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	a, ok := m.db.attempts[token]
	if !ok || a.Status != entity.PaymentAttemptInitiated {
		return false, nil
	}
	a.Status = status
	a.GatewayRef = gatewayRef
	a.Reason = reason
	a.ResolvedAt = &at
	m.db.attempts[token] = a
	return true, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

type stubClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type stubPublisher struct {
	mu     sync.Mutex
	events []events.BookingEvent
}

func (p *stubPublisher) Publish(_ context.Context, event events.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db     *memDB
	clock  *stubClock
	events *stubPublisher
	svc    *Service
	owner  Actor
}

// newTestEnv starts the clock at 09:00 UTC on a fixed day so 10:00 slots are in the future.
func newTestEnv(t *testing.T, gateways payment.Gateways) *testEnv {
	t.Helper()

	db := newMemDB()
	clock := &stubClock{t: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	publisher := &stubPublisher{}
	if gateways == nil {
		gateways = payment.Gateways{
			entity.PaymentMethodEsewa:  payment.NewEsewaGateway("https://uat.esewa.com.np/epay/main", "EPAYTEST", "", ""),
			entity.PaymentMethodKhalti: payment.NewMockGateway(entity.PaymentMethodKhalti, clock.Now),
		}
	}

	config := &utils.Config{
		JWT:     utils.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		Booking: utils.BookingConfig{PaymentWindowMinutes: 10, MaxHours: 24},
	}
	svc := NewService(db.repository(), config, Dependencies{
		Clock:    clock,
		Events:   publisher,
		Gateways: gateways,
	}, zap.NewNop())

	return &testEnv{
		db:     db,
		clock:  clock,
		events: publisher,
		svc:    svc,
		owner:  Actor{ID: uuid.New(), Role: entity.RoleOwner},
	}
}

func (e *testEnv) addSpot(t *testing.T, price float64, total, available int) entity.Spot {
	t.Helper()
	spot := entity.Spot{
		Base:           entity.Base{ID: uuid.New(), CreatedAt: e.clock.Now()},
		OwnerID:        e.owner.ID,
		Name:           "Durbar Marg Parking",
		Address:        "Durbar Marg, Kathmandu",
		PricePerHour:   price,
		TotalSpots:     total,
		AvailableSpots: available,
		Latitude:       27.7120,
		Longitude:      85.3170,
	}
	e.db.mu.Lock()
	e.db.spots[spot.ID] = spot
	e.db.mu.Unlock()
	return spot
}

func (e *testEnv) at(hour, minute int) time.Time {
	now := e.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
}
