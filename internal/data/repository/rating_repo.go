package repository

import (
	"context"
	"errors"
	"fmt"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type RatingRepository interface {
	// CreateAndApply stores the rating and folds it into the spot's running average.
	// Returns nil spot when the spot does not exist.
	CreateAndApply(ctx context.Context, rating *entity.Rating) (*entity.Spot, error)
	FindBySpotID(ctx context.Context, spotID uuid.UUID, limit int) ([]*entity.Rating, error)
}

type ratingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRatingRepository(db database.PgxIface, log *zap.Logger) RatingRepository {
	return &ratingRepository{
		db:  db,
		log: log.With(zap.String("repository", "rating")),
	}
}

func (r *ratingRepository) CreateAndApply(ctx context.Context, rating *entity.Rating) (*entity.Spot, error) {
	applyQuery := `
		UPDATE parking_spots
		SET rating = ROUND(((rating * total_ratings + $2) / (total_ratings + 1))::numeric, 2),
		    total_ratings = total_ratings + 1,
		    updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + spotColumns

	insertQuery := `
		INSERT INTO ratings (id, spot_id, user_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var spot *entity.Spot
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		spot, err = scanSpot(tx.QueryRow(ctx, applyQuery, rating.SpotID, float64(rating.Rating), rating.CreatedAt))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, insertQuery,
			rating.ID,
			rating.SpotID,
			rating.UserID,
			rating.Rating,
			rating.Comment,
			rating.CreatedAt,
		)
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to create rating",
			zap.Error(err),
			zap.String("user_id", rating.UserID.String()),
			zap.String("spot_id", rating.SpotID.String()),
		)
		return nil, fmt.Errorf("create rating for spot %s by user %s: %w",
			rating.SpotID.String(), rating.UserID.String(), err)
	}

	return spot, nil
}

func (r *ratingRepository) FindBySpotID(ctx context.Context, spotID uuid.UUID, limit int) ([]*entity.Rating, error) {
	query := `
		SELECT id, spot_id, user_id, rating, comment, created_at
		FROM ratings
		WHERE spot_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, spotID, limit)
	if err != nil {
		r.log.Error("Failed to find ratings by spot ID",
			zap.Error(err),
			zap.String("spot_id", spotID.String()),
			zap.Int("limit", limit),
		)
		return nil, fmt.Errorf("find ratings by spot ID %s: %w", spotID.String(), err)
	}
	defer rows.Close()

	var ratings []*entity.Rating
	for rows.Next() {
		var rating entity.Rating
		err := rows.Scan(
			&rating.ID,
			&rating.SpotID,
			&rating.UserID,
			&rating.Rating,
			&rating.Comment,
			&rating.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan rating row", zap.Error(err))
			return nil, fmt.Errorf("scan rating row: %w", err)
		}
		ratings = append(ratings, &rating)
	}

	return ratings, rows.Err()
}
