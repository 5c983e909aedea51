package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"garagehub/config"
)

// NewCacheClient builds the Redis client used for sweep locks and general
// caching. The caller owns the client and passes it into the services that
// need it.
func NewCacheClient(cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis (cache): %w", err)
	}
	return client, nil
}
