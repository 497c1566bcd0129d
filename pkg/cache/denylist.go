package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const denyListPrefix = "auth:denied:"

// TokenDenyList remembers revoked token ids until the token would have expired anyway.
type TokenDenyList struct {
	client *redis.Client
}

func NewTokenDenyList(client *redis.Client) *TokenDenyList {
	return &TokenDenyList{client: client}
}

func (d *TokenDenyList) Deny(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, denyListPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("deny token %s: %w", tokenID, err)
	}
	return nil
}

func (d *TokenDenyList) IsDenied(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, denyListPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token %s: %w", tokenID, err)
	}
	return true, nil
}
