package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/donaldmo/pandopot-api/internal/app/config"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout      = 5 * time.Second
	defaultOpTimeout = 500 * time.Millisecond
)

// NewClient connects and pings. Command read/write deadlines follow cfg.OpTimeout.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opTimeout := cfg.OpTimeout
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  dialTimeout,
		ReadTimeout:  opTimeout,
		WriteTimeout: opTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis at %s did not answer ping: %w", cfg.Addr, err)
	}
	return client, nil
}

// Ping reports whether the server is reachable. It backs the gRPC health probe.
func Ping(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
