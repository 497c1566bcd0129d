package geo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestIndex(t *testing.T) *RedisIndex {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisIndex(client, "")
}

func TestRedisIndexNearbyReturnsClosestFirst(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	near := uuid.New()
	far := uuid.New()
	outside := uuid.New()
	require.NoError(t, index.Add(ctx, far, Coordinate{Lat: 27.7400, Lng: 85.3240}))
	require.NoError(t, index.Add(ctx, near, Coordinate{Lat: 27.7180, Lng: 85.3245}))
	require.NoError(t, index.Add(ctx, outside, Coordinate{Lat: 28.2096, Lng: 83.9856}))

	ids, err := index.Nearby(ctx, Kathmandu, 5, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{near, far}, ids)
}

func TestRedisIndexRemove(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	id := uuid.New()
	require.NoError(t, index.Add(ctx, id, Kathmandu))
	require.NoError(t, index.Remove(ctx, id))

	ids, err := index.Nearby(ctx, Kathmandu, 5, 10)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestRedisIndexRespectsLimit(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, index.Add(ctx, uuid.New(), Coordinate{Lat: Kathmandu.Lat + float64(i)*0.001, Lng: Kathmandu.Lng}))
	}

	ids, err := index.Nearby(ctx, Kathmandu, 5, 3)
	require.NoError(t, err)
	require.Len(t, ids, 3)
}

// miniredis has no GEOSEARCH, so it stands in for a pre-6.2 server here.
func TestRedisIndexFallsBackWithoutGeoSearch(t *testing.T) {
	ctx := context.Background()
	index := newTestIndex(t)

	id := uuid.New()
	require.NoError(t, index.Add(ctx, id, Kathmandu))

	ids, err := index.Nearby(ctx, Kathmandu, 1, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, ids)
	require.True(t, index.legacy.Load())

	ids, err = index.Nearby(ctx, Kathmandu, 1, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{id}, ids)
}

func startRedis(t *testing.T, ctx context.Context) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container tests are skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIndexGeoSearch(t *testing.T) {
	ctx := context.Background()
	index := NewRedisIndex(startRedis(t, ctx), "")

	near := uuid.New()
	far := uuid.New()
	outside := uuid.New()
	require.NoError(t, index.Add(ctx, far, Coordinate{Lat: 27.7400, Lng: 85.3240}))
	require.NoError(t, index.Add(ctx, near, Coordinate{Lat: 27.7180, Lng: 85.3245}))
	require.NoError(t, index.Add(ctx, outside, Coordinate{Lat: 28.2096, Lng: 83.9856}))

	ids, err := index.Nearby(ctx, Kathmandu, 5, 10)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{near, far}, ids)
	require.False(t, index.legacy.Load(), "redis 7 answers GEOSEARCH")

	ids, err = index.Nearby(ctx, Kathmandu, 5, 1)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{near}, ids)
}
