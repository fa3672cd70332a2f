package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/pkg/config"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// NewOptionalRedis connects only when the calendar cache is enabled. An unreachable
// Redis degrades to a nil client, which the cache repository treats as always-miss.
func NewOptionalRedis(cfg config.RedisConfig, calendar config.CalendarConfig, logger *zap.Logger) *redis.Client {
	if !calendar.CacheEnabled {
		return nil
	}
	client, err := NewRedis(cfg)
	if err != nil {
		if logger != nil {
			logger.Warn("redis unavailable, production calendar cache disabled", zap.Error(err))
		}
		return nil
	}
	return client
}
