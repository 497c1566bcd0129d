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

type SpotRepository interface {
	Create(ctx context.Context, spot *entity.Spot) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Spot, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Spot, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Spot, error)
	CountAll(ctx context.Context) (int64, error)
	FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*entity.Spot, error)
	Update(ctx context.Context, spot *entity.Spot) (*entity.Spot, error)

	// SoftDelete marks the spot deleted unless a booking still holds one of its places.
	// deleted is false when the spot is missing or in use.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (deleted bool, err error)
}

type spotRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSpotRepository(db database.PgxIface, log *zap.Logger) SpotRepository {
	return &spotRepository{
		db:  db,
		log: log.With(zap.String("repository", "spot")),
	}
}

const spotColumns = `id, owner_id, name, address, description, price_per_hour, total_spots,
	available_spots, latitude, longitude, amenities, open_time, close_time, rating,
	total_ratings, created_at, updated_at, deleted_at`

func (r *spotRepository) Create(ctx context.Context, spot *entity.Spot) error {
	if err := spot.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO parking_spots (id, owner_id, name, address, description, price_per_hour,
		                           total_spots, available_spots, latitude, longitude, amenities,
		                           open_time, close_time, rating, total_ratings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.db.Exec(ctx, query,
		spot.ID,
		spot.OwnerID,
		spot.Name,
		spot.Address,
		spot.Description,
		spot.PricePerHour,
		spot.TotalSpots,
		spot.AvailableSpots,
		spot.Latitude,
		spot.Longitude,
		amenitiesOrEmpty(spot.Amenities),
		spot.OpenTime,
		spot.CloseTime,
		spot.Rating,
		spot.TotalRatings,
		spot.CreatedAt,
		spot.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create spot",
			zap.Error(err),
			zap.String("owner_id", spot.OwnerID.String()),
			zap.String("name", spot.Name),
		)
		return fmt.Errorf("create spot %s: %w", spot.Name, err)
	}

	return nil
}

func (r *spotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Spot, error) {
	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = $1 AND deleted_at IS NULL`

	spot, err := scanSpot(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find spot by ID",
			zap.Error(err),
			zap.String("spot_id", id.String()),
		)
		return nil, fmt.Errorf("find spot by ID %s: %w", id.String(), err)
	}

	return spot, nil
}

func (r *spotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Spot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + spotColumns + ` FROM parking_spots WHERE id = ANY($1) AND deleted_at IS NULL`

	spots, err := r.querySpots(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find spots by IDs", zap.Error(err), zap.Int("count", len(ids)))
		return nil, fmt.Errorf("find spots by IDs: %w", err)
	}

	return spots, nil
}

func (r *spotRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Spot, error) {
	query := `
		SELECT ` + spotColumns + `
		FROM parking_spots
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	spots, err := r.querySpots(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find spots",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find spots: %w", err)
	}

	return spots, nil
}

func (r *spotRepository) CountAll(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM parking_spots WHERE deleted_at IS NULL`

	var count int64
	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		r.log.Error("Failed to count spots", zap.Error(err))
		return 0, fmt.Errorf("count spots: %w", err)
	}

	return count, nil
}

func (r *spotRepository) FindByOwnerID(ctx context.Context, ownerID uuid.UUID) ([]*entity.Spot, error) {
	query := `
		SELECT ` + spotColumns + `
		FROM parking_spots
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`

	spots, err := r.querySpots(ctx, query, ownerID)
	if err != nil {
		r.log.Error("Failed to find spots by owner",
			zap.Error(err),
			zap.String("owner_id", ownerID.String()),
		)
		return nil, fmt.Errorf("find spots by owner %s: %w", ownerID.String(), err)
	}

	return spots, nil
}

// Update writes the owner-editable fields. Inventory and rating columns are never touched here.
func (r *spotRepository) Update(ctx context.Context, spot *entity.Spot) (*entity.Spot, error) {
	query := `
		UPDATE parking_spots
		SET name = $2, address = $3, description = $4, price_per_hour = $5,
		    latitude = $6, longitude = $7, amenities = $8, open_time = $9,
		    close_time = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + spotColumns

	updated, err := scanSpot(r.db.QueryRow(ctx, query,
		spot.ID,
		spot.Name,
		spot.Address,
		spot.Description,
		spot.PricePerHour,
		spot.Latitude,
		spot.Longitude,
		amenitiesOrEmpty(spot.Amenities),
		spot.OpenTime,
		spot.CloseTime,
		spot.UpdatedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to update spot",
			zap.Error(err),
			zap.String("spot_id", spot.ID.String()),
		)
		return nil, fmt.Errorf("update spot %s: %w", spot.ID.String(), err)
	}

	return updated, nil
}

func (r *spotRepository) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE parking_spots
		SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL
		  AND NOT EXISTS (
		      SELECT 1 FROM bookings WHERE spot_id = $1 AND booking_status = 'active'
		  )
	`

	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.log.Error("Failed to delete spot",
			zap.Error(err),
			zap.String("spot_id", id.String()),
		)
		return false, fmt.Errorf("delete spot %s: %w", id.String(), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *spotRepository) querySpots(ctx context.Context, query string, args ...any) ([]*entity.Spot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*entity.Spot
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spot row: %w", err)
		}
		spots = append(spots, spot)
	}

	return spots, rows.Err()
}

// scanSpot reads one row and rejects records that violate the inventory invariants.
func scanSpot(row rowScanner) (*entity.Spot, error) {
	var spot entity.Spot
	err := row.Scan(
		&spot.ID,
		&spot.OwnerID,
		&spot.Name,
		&spot.Address,
		&spot.Description,
		&spot.PricePerHour,
		&spot.TotalSpots,
		&spot.AvailableSpots,
		&spot.Latitude,
		&spot.Longitude,
		&spot.Amenities,
		&spot.OpenTime,
		&spot.CloseTime,
		&spot.Rating,
		&spot.TotalRatings,
		&spot.CreatedAt,
		&spot.UpdatedAt,
		&spot.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := spot.Validate(); err != nil {
		return nil, fmt.Errorf("spot %s: %w", spot.ID.String(), err)
	}
	return &spot, nil
}

func amenitiesOrEmpty(amenities []string) []string {
	if amenities == nil {
		return []string{}
	}
	return amenities
}
