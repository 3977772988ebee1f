package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ytschitwan/portal/logger"
)

// RedisCounter shares rate-limit windows between instances.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to addr and checks the connection.
func NewRedisCounter(ctx context.Context, addr, password string, db int) (*RedisCounter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	logger.Info("Rate limiting with Redis at", addr)
	return &RedisCounter{client: client}, nil
}

// Incr starts the window expiry on the first hit of a key.
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			// a key without expiry would block the client for good
			r.client.Del(ctx, key)
			return n, err
		}
	}
	return n, nil
}

func (r *RedisCounter) Close() error {
	return r.client.Close()
}
