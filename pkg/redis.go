package pkg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/skillforge/assessment-service/internal/cache"
	"github.com/skillforge/assessment-service/internal/config"
)

const snapshotCacheDialTimeout = 5 * time.Second

// InitSnapshotCache connects to Redis and wraps it as the resume-snapshot
// cache. The engine runs fine without it; callers fall back to the noop
// cache and resume rebuilds state from the database on every read.
func InitSnapshotCache(cfg *config.Config, logger *slog.Logger) (cache.CacheService, *redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), snapshotCacheDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return cache.NewRedisCache(client, logger), client, nil
}
