package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"shopwhiz/go_backend/internal/app/config"
)

// New returns nil without error when no redis address is configured;
// callers treat a nil client as "cache disabled".
func New(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}
