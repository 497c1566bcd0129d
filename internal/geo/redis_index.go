package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errInvalidGeoMember = errors.New("invalid geo index member")

// RedisIndex keeps spot coordinates in a Redis GEO set so radius queries do not scan the
// whole spot table.
type RedisIndex struct {
	client *redis.Client
	key    string

	// set once the server rejects GEOSEARCH (Redis < 6.2)
	legacy atomic.Bool
}

func NewRedisIndex(client *redis.Client, key string) *RedisIndex {
	if key == "" {
		key = "parking:spots:geo"
	}
	return &RedisIndex{client: client, key: key}
}

// Add inserts or moves a spot.
func (r *RedisIndex) Add(ctx context.Context, spotID uuid.UUID, at Coordinate) error {
	err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{
		Name:      spotID.String(),
		Longitude: at.Lng,
		Latitude:  at.Lat,
	}).Err()
	if err != nil {
		return fmt.Errorf("redis geoadd %s: %w", spotID.String(), err)
	}
	return nil
}

func (r *RedisIndex) Remove(ctx context.Context, spotID uuid.UUID) error {
	if err := r.client.ZRem(ctx, r.key, spotID.String()).Err(); err != nil {
		return fmt.Errorf("redis zrem %s: %w", spotID.String(), err)
	}
	return nil
}

// Nearby returns up to limit spot ids within radiusKM, closest first.
func (r *RedisIndex) Nearby(ctx context.Context, at Coordinate, radiusKM float64, limit int) ([]uuid.UUID, error) {
	var (
		results []redis.GeoLocation
		err     error
	)
	if !r.legacy.Load() {
		results, err = r.search(ctx, at, radiusKM, limit)
		if isUnknownCommand(err) {
			r.legacy.Store(true)
		}
	}
	if r.legacy.Load() {
		results, err = r.radius(ctx, at, radiusKM, limit)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(results))
	for _, res := range results {
		id, err := uuid.Parse(res.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errInvalidGeoMember, res.Name)
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *RedisIndex) search(ctx context.Context, at Coordinate, radiusKM float64, limit int) ([]redis.GeoLocation, error) {
	query := &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  at.Lng,
			Latitude:   at.Lat,
			Radius:     radiusKM,
			RadiusUnit: "km",
			Sort:       "ASC",
			Count:      limit,
		},
		WithDist: true,
	}

	results, err := r.client.GeoSearchLocation(ctx, r.key, query).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geosearch: %w", err)
	}
	return results, nil
}

// radius serves servers without GEOSEARCH.
func (r *RedisIndex) radius(ctx context.Context, at Coordinate, radiusKM float64, limit int) ([]redis.GeoLocation, error) {
	results, err := r.client.GeoRadius(ctx, r.key, at.Lng, at.Lat, &redis.GeoRadiusQuery{
		Radius:   radiusKM,
		Unit:     "km",
		WithDist: true,
		Count:    limit,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis georadius: %w", err)
	}
	return results, nil
}

func isUnknownCommand(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unknown command")
}
