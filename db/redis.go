package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/user/zwitter-go/apperror"
	"github.com/user/zwitter-go/config"
)

// NewRedisClient connects to the Redis instance holding verification codes
// and staged temporary users, verifying connectivity with a ping.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperror.NewTechnicalError(fmt.Errorf("error connecting to redis at %s: %w", cfg.Addr, err))
	}

	return client, nil
}
