//go:build integration

package redis

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/donaldmo/pandopot-api/internal/domain/entity"
	"github.com/donaldmo/pandopot-api/internal/repository"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClient *redis.Client

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start Redis resource: %s", err)
	}

	if err := pool.Retry(func() error {
		testClient = redis.NewClient(&redis.Options{Addr: resource.GetHostPort("6379/tcp")})
		return testClient.Ping(context.Background()).Err()
	}); err != nil {
		log.Fatalf("Could not connect to Redis: %s", err)
	}

	code := m.Run()

	_ = testClient.Close()
	_ = pool.Purge(resource)
	os.Exit(code)
}

func TestProductCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	cache := NewProductCacheRepository(testClient)

	_, err := cache.Get(ctx, "p-missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, cache.Set(ctx, &entity.Product{ID: "p1", Name: "Lamp", Price: 12.5}, time.Minute))

	got, err := cache.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)

	require.NoError(t, cache.Delete(ctx, "p1"))
	_, err = cache.Get(ctx, "p1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIdempotency_AcquireCompleteResult(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyRepository(testClient)

	ok, err := store.Acquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Acquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Result(ctx, "k1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Complete(ctx, "k1", "order-1", time.Minute))
	id, err := store.Result(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "order-1", id)

	require.NoError(t, store.Release(ctx, "k1"))
	ok, err = store.Acquire(ctx, "k1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdempotency_ExpiredKeyCanBeReacquired(t *testing.T) {
	ctx := context.Background()
	store := NewIdempotencyRepository(testClient)

	ok, err := store.Acquire(ctx, "k-expiring", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.Acquire(ctx, "k-expiring", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.Eventually(t, func() bool {
		_, err := testClient.Get(ctx, idemKey("k-expiring")).Result()
		return errors.Is(err, redis.Nil)
	}, 2*time.Second, 20*time.Millisecond)

	_, err = store.Result(ctx, "k-expiring")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	ok, err = store.Acquire(ctx, "k-expiring", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
