package usecase

import (
	"context"
	"errors"
	"strings"

	"smart-parking/internal/data/entity"
	"smart-parking/internal/data/repository"
	"smart-parking/internal/dto/request"
	"smart-parking/internal/dto/response"
	"smart-parking/internal/geo"
	"smart-parking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SpotService interface {
	CreateSpot(ctx context.Context, actor Actor, req *request.CreateSpotRequest) (*response.SpotResponse, error)
	UpdateSpot(ctx context.Context, actor Actor, spotID uuid.UUID, req *request.UpdateSpotRequest) (*response.SpotResponse, error)
	DeleteSpot(ctx context.Context, actor Actor, spotID uuid.UUID) error
	GetSpot(ctx context.Context, spotID uuid.UUID) (*response.SpotResponse, error)
	ListSpots(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.SpotResponse], error)
	ListOwnerSpots(ctx context.Context, ownerID uuid.UUID) ([]response.SpotResponse, error)

	NearbySpots(ctx context.Context, req *request.NearbyRequest) ([]response.SpotWithDistanceResponse, error)
	NearestSpot(ctx context.Context, observer geo.Coordinate) (*response.SpotWithDistanceResponse, error)

	RateSpot(ctx context.Context, userID, spotID uuid.UUID, req *request.RateSpotRequest) (*response.SpotResponse, error)
	GetSpotRatings(ctx context.Context, spotID uuid.UUID) ([]response.RatingResponse, error)
}

const (
	defaultNearbyRadiusKM = 5.0
	defaultNearbyLimit    = 20
	// upper bound on spots ranked in memory when no geo index is configured
	maxRankCandidates = 500
	ratingsPageSize   = 50
)

type spotService struct {
	repo  *repository.Repository
	index GeoIndex
	clock Clock
	log   *zap.Logger
}

func NewSpotService(repo *repository.Repository, deps Dependencies, log *zap.Logger) SpotService {
	return &spotService{
		repo:  repo,
		index: deps.GeoIndex,
		clock: deps.Clock,
		log:   log.With(zap.String("service", "spot")),
	}
}

func (s *spotService) CreateSpot(ctx context.Context, actor Actor, req *request.CreateSpotRequest) (*response.SpotResponse, error) {
	if !actor.Role.CanManageSpots() {
		return nil, ErrForbidden
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	spot := &entity.Spot{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OwnerID:        actor.ID,
		Name:           strings.TrimSpace(req.Name),
		Address:        strings.TrimSpace(req.Address),
		Description:    req.Description,
		PricePerHour:   utils.RoundMoney(*req.PricePerHour),
		TotalSpots:     req.TotalSpots,
		AvailableSpots: req.TotalSpots,
		Latitude:       *req.Latitude,
		Longitude:      *req.Longitude,
		Amenities:      req.Amenities,
		OpenTime:       req.OpenTime,
		CloseTime:      req.CloseTime,
	}

	if err := s.repo.Spot.Create(ctx, spot); err != nil {
		if errors.Is(err, entity.ErrInvalidSpot) {
			return nil, invalidField("spot", err.Error())
		}
		return nil, storeError("create spot", err)
	}

	s.indexSpot(ctx, spot)
	s.log.Info("Spot created",
		zap.String("spot_id", spot.ID.String()),
		zap.String("owner_id", actor.ID.String()),
		zap.Int("total_spots", spot.TotalSpots),
	)

	resp := response.SpotToResponse(spot)
	return &resp, nil
}

func (s *spotService) UpdateSpot(ctx context.Context, actor Actor, spotID uuid.UUID, req *request.UpdateSpotRequest) (*response.SpotResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	spot, err := s.ownedSpot(ctx, actor, spotID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		spot.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		spot.Address = strings.TrimSpace(*req.Address)
	}
	if req.Description != nil {
		spot.Description = req.Description
	}
	if req.PricePerHour != nil {
		spot.PricePerHour = utils.RoundMoney(*req.PricePerHour)
	}
	moved := false
	if req.Latitude != nil && *req.Latitude != spot.Latitude {
		spot.Latitude = *req.Latitude
		moved = true
	}
	if req.Longitude != nil && *req.Longitude != spot.Longitude {
		spot.Longitude = *req.Longitude
		moved = true
	}
	if req.Amenities != nil {
		spot.Amenities = *req.Amenities
	}
	if req.OpenTime != nil {
		spot.OpenTime = req.OpenTime
	}
	if req.CloseTime != nil {
		spot.CloseTime = req.CloseTime
	}
	spot.UpdatedAt = s.clock.Now()

	if err := spot.Validate(); err != nil {
		return nil, invalidField("spot", err.Error())
	}

	updated, err := s.repo.Spot.Update(ctx, spot)
	if err != nil {
		return nil, storeError("update spot", err)
	}
	if updated == nil {
		return nil, ErrSpotNotFound
	}

	if moved {
		s.indexSpot(ctx, updated)
	}

	resp := response.SpotToResponse(updated)
	return &resp, nil
}

// DeleteSpot soft-deletes a spot. Spots with bookings still holding a place stay.
func (s *spotService) DeleteSpot(ctx context.Context, actor Actor, spotID uuid.UUID) error {
	if _, err := s.ownedSpot(ctx, actor, spotID); err != nil {
		return err
	}

	deleted, err := s.repo.Spot.SoftDelete(ctx, spotID, s.clock.Now())
	if err != nil {
		return storeError("delete spot", err)
	}
	if !deleted {
		current, err := s.repo.Spot.FindByID(ctx, spotID)
		if err != nil {
			return storeError("find spot", err)
		}
		if current == nil {
			return ErrSpotNotFound
		}
		return ErrSpotInUse
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, spotID); err != nil {
			s.log.Warn("Failed to remove spot from geo index", zap.Error(err), zap.String("spot_id", spotID.String()))
		}
	}

	s.log.Info("Spot deleted",
		zap.String("spot_id", spotID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return nil
}

func (s *spotService) GetSpot(ctx context.Context, spotID uuid.UUID) (*response.SpotResponse, error) {
	spot, err := s.repo.Spot.FindByID(ctx, spotID)
	if err != nil {
		return nil, storeError("find spot", err)
	}
	if spot == nil {
		return nil, ErrSpotNotFound
	}

	resp := response.SpotToResponse(spot)
	return &resp, nil
}

func (s *spotService) ListSpots(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.SpotResponse], error) {
	page, limit := pageOf(req)

	spots, err := s.repo.Spot.FindAll(ctx, limit, utils.CalculateOffset(page, limit))
	if err != nil {
		return nil, storeError("list spots", err)
	}

	total, err := s.repo.Spot.CountAll(ctx)
	if err != nil {
		return nil, storeError("count spots", err)
	}

	return response.NewPaginatedResponse(spotsToResponse(spots), page, limit, total), nil
}

func (s *spotService) ListOwnerSpots(ctx context.Context, ownerID uuid.UUID) ([]response.SpotResponse, error) {
	spots, err := s.repo.Spot.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, storeError("list owner spots", err)
	}
	return spotsToResponse(spots), nil
}

// NearbySpots returns spots within the radius, closest first.
func (s *spotService) NearbySpots(ctx context.Context, req *request.NearbyRequest) ([]response.SpotWithDistanceResponse, error) {
	if req.RadiusKM == 0 {
		req.RadiusKM = defaultNearbyRadiusKM
	}
	if req.Limit == 0 {
		req.Limit = defaultNearbyLimit
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	observer := geo.Coordinate{Lat: req.Lat, Lng: req.Lng}
	spots, err := s.candidates(ctx, observer, req.RadiusKM, req.Limit)
	if err != nil {
		return nil, err
	}

	ranked := geo.SortByDistance(observer, spots, spotLocation)
	out := make([]response.SpotWithDistanceResponse, 0, req.Limit)
	for _, r := range ranked {
		if r.DistanceKM > req.RadiusKM || len(out) == req.Limit {
			break
		}
		out = append(out, response.SpotWithDistanceResponse{
			SpotResponse: response.SpotToResponse(r.Item),
			DistanceKM:   r.DistanceKM,
		})
	}

	return out, nil
}

func (s *spotService) NearestSpot(ctx context.Context, observer geo.Coordinate) (*response.SpotWithDistanceResponse, error) {
	if !observer.Valid() {
		return nil, invalidField("lat", "Coordinates out of range")
	}

	spots, err := s.repo.Spot.FindAll(ctx, maxRankCandidates, 0)
	if err != nil {
		return nil, storeError("list spots", err)
	}

	nearest, ok := geo.FindNearest(observer, spots, spotLocation)
	if !ok {
		return nil, ErrSpotNotFound
	}

	return &response.SpotWithDistanceResponse{
		SpotResponse: response.SpotToResponse(nearest.Item),
		DistanceKM:   nearest.DistanceKM,
	}, nil
}

func (s *spotService) RateSpot(ctx context.Context, userID, spotID uuid.UUID, req *request.RateSpotRequest) (*response.SpotResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	rating := &entity.Rating{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.clock.Now(),
		},
		SpotID:  spotID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	spot, err := s.repo.Rating.CreateAndApply(ctx, rating)
	if err != nil {
		return nil, storeError("rate spot", err)
	}
	if spot == nil {
		return nil, ErrSpotNotFound
	}

	resp := response.SpotToResponse(spot)
	return &resp, nil
}

func (s *spotService) GetSpotRatings(ctx context.Context, spotID uuid.UUID) ([]response.RatingResponse, error) {
	if _, err := s.GetSpot(ctx, spotID); err != nil {
		return nil, err
	}

	ratings, err := s.repo.Rating.FindBySpotID(ctx, spotID, ratingsPageSize)
	if err != nil {
		return nil, storeError("find ratings", err)
	}

	out := make([]response.RatingResponse, 0, len(ratings))
	for _, r := range ratings {
		out = append(out, response.RatingToResponse(r))
	}
	return out, nil
}

// candidates loads the spots worth ranking. The geo index narrows the set when present;
// an index failure falls back to the table scan.
func (s *spotService) candidates(ctx context.Context, observer geo.Coordinate, radiusKM float64, limit int) ([]*entity.Spot, error) {
	if s.index != nil {
		ids, err := s.index.Nearby(ctx, observer, radiusKM, limit)
		if err == nil {
			spots, err := s.repo.Spot.FindByIDs(ctx, ids)
			if err != nil {
				return nil, storeError("find spots by ids", err)
			}
			return spots, nil
		}
		s.log.Warn("Geo index query failed, ranking from store", zap.Error(err))
	}

	spots, err := s.repo.Spot.FindAll(ctx, maxRankCandidates, 0)
	if err != nil {
		return nil, storeError("list spots", err)
	}
	return spots, nil
}

func (s *spotService) ownedSpot(ctx context.Context, actor Actor, spotID uuid.UUID) (*entity.Spot, error) {
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
	return spot, nil
}

func (s *spotService) indexSpot(ctx context.Context, spot *entity.Spot) {
	if s.index == nil {
		return
	}
	if err := s.index.Add(ctx, spot.ID, spotLocation(spot)); err != nil {
		s.log.Warn("Failed to index spot location", zap.Error(err), zap.String("spot_id", spot.ID.String()))
	}
}

func spotLocation(s *entity.Spot) geo.Coordinate {
	return geo.Coordinate{Lat: s.Latitude, Lng: s.Longitude}
}

func spotsToResponse(spots []*entity.Spot) []response.SpotResponse {
	out := make([]response.SpotResponse, 0, len(spots))
	for _, spot := range spots {
		out = append(out, response.SpotToResponse(spot))
	}
	return out
}
