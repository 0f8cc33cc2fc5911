package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/templatestore/license-service/internal/config"
	"go.uber.org/zap"
)

// NewRedisClient connects the client shared by the rate limiter. The task
// queue builds its own connection from the same RedisConfig.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(ClientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.Ping(pingCtx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Successfully connected to Redis", zap.String("addr", cfg.Addr))
	return client, nil
}

func ClientOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
