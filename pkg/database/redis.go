package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/askdb-ai/askdb-engine/pkg/config"
)

// NewRedisClient creates the client backing the answer cache.
// Returns nil if Redis is not configured (host is empty); the cache then
// degrades to a no-op and every question goes through the generator.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}
