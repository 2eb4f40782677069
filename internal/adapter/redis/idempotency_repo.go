package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyPrefix = "idem:"
	inFlightMarker       = "-"
)

type idempotencyRepository struct {
	client redis.Cmdable
}

func NewIdempotencyRepository(client redis.Cmdable) repository.IdempotencyStore {
	return &idempotencyRepository{client: client}
}

func idemKey(key string) string {
	return idempotencyKeyPrefix + key
}

func (r *idempotencyRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, idemKey(key), inFlightMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire idempotency key %s: %w", key, err)
	}
	return ok, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, resultID string, ttl time.Duration) error {
	if err := r.client.Set(ctx, idemKey(key), resultID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to complete idempotency key %s: %w", key, err)
	}
	return nil
}

func (r *idempotencyRepository) Result(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, idemKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", repository.ErrNotFound
		}
		return "", fmt.Errorf("failed to read idempotency key %s: %w", key, err)
	}
	if val == inFlightMarker {
		return "", repository.ErrNotFound
	}
	return val, nil
}

func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idemKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key %s: %w", key, err)
	}
	return nil
}
