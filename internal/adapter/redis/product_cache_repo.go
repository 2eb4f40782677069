package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/redis/go-redis/v9"
)

const productCacheKeyPrefix = "product:"

type productCacheRepository struct {
	client redis.Cmdable
}

func NewProductCacheRepository(client redis.Cmdable) repository.ProductCache {
	return &productCacheRepository{client: client}
}

func productKey(productID string) string {
	return productCacheKeyPrefix + productID
}

func (r *productCacheRepository) Get(ctx context.Context, productID string) (*entity.Product, error) {
	val, err := r.client.Get(ctx, productKey(productID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product %s from redis: %w", productID, err)
	}

	var product entity.Product
	if err := json.Unmarshal(val, &product); err != nil {
		_ = r.Delete(ctx, productID)
		return nil, fmt.Errorf("failed to unmarshal cached product %s: %w", productID, err)
	}
	return &product, nil
}

func (r *productCacheRepository) Set(ctx context.Context, product *entity.Product, ttl time.Duration) error {
	if product == nil || product.ID == "" {
		return errors.New("cannot cache nil product or product with empty id")
	}

	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product %s: %w", product.ID, err)
	}
	if err := r.client.Set(ctx, productKey(product.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set product %s in redis: %w", product.ID, err)
	}
	return nil
}

func (r *productCacheRepository) Delete(ctx context.Context, productID string) error {
	if err := r.client.Del(ctx, productKey(productID)).Err(); err != nil {
		return fmt.Errorf("failed to delete product %s from redis: %w", productID, err)
	}
	return nil
}
