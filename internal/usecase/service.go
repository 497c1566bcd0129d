package usecase

import (
	"context"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/events"
	"smart-parking/internal/geo"
	"smart-parking/internal/payment"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Clock abstracts time so lifecycle deadlines can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// GeoIndex prefilters spots by radius. Optional.
type GeoIndex interface {
	Add(ctx context.Context, spotID uuid.UUID, at geo.Coordinate) error
	Remove(ctx context.Context, spotID uuid.UUID) error
	Nearby(ctx context.Context, at geo.Coordinate, radiusKM float64, limit int) ([]uuid.UUID, error)
}

// TokenDenyList revokes issued tokens. Optional.
type TokenDenyList interface {
	Deny(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role entity.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == entity.RoleAdmin }

// Dependencies groups the infrastructure the services share. Nil optional members are
// replaced with no-op defaults.
type Dependencies struct {
	Clock    Clock
	Events   events.Publisher
	GeoIndex GeoIndex
	DenyList TokenDenyList
	Gateways payment.Gateways
}

func (d Dependencies) withDefaults(config *utils.Config) Dependencies {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Events == nil {
		d.Events = events.NopPublisher{}
	}
	if d.Gateways == nil {
		d.Gateways = payment.NewGateways(config.Payment)
	}
	return d
}

type Service struct {
	Auth    AuthService
	Spot    SpotService
	Booking BookingService
	Payment PaymentService
}

func NewService(repo *repository.Repository, config *utils.Config, deps Dependencies, log *zap.Logger) *Service {
	deps = deps.withDefaults(config)

	booking := NewBookingService(repo, config.Booking, deps, log)
	return &Service{
		Auth:    NewAuthService(repo, config.JWT, deps, log),
		Spot:    NewSpotService(repo, deps, log),
		Booking: booking,
		Payment: NewPaymentService(repo, booking, deps, log),
	}
}
