package cache

import (
	"context"
	"fmt"
	"time"

	"smart-parking/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// InitRedis opens a client and verifies the server answers before handing it out.
func InitRedis(config utils.RedisConfig) (*redis.Client, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", config.Addr, err)
	}

	return client, nil
}
