package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

const contextKeyPrefix = "aiden:context:"

// RedisConfig holds configuration for the Redis context cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache implements Cache on top of Redis. TTL handling is delegated to
// the server via key expiry.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache creates a Redis-backed context cache with connection
// validation.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

// Load fetches and decodes a context. A missing key is a miss, not an error.
func (c *RedisCache) Load(ctx context.Context, conversationID string) (*domain.Context, error) {
	data, err := c.rdb.Get(ctx, contextKeyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	var stored domain.Context
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("decode context: %w", err)
	}
	return &stored, nil
}

// Store encodes and writes a context with the given expiry.
func (c *RedisCache) Store(ctx context.Context, conversationID string, stored *domain.Context, ttl time.Duration) error {
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := c.rdb.Set(ctx, contextKeyPrefix+conversationID, data, ttl).Err(); err != nil {
		return fmt.Errorf("set context: %w", err)
	}
	return nil
}

// Remove deletes a context key.
func (c *RedisCache) Remove(ctx context.Context, conversationID string) error {
	if err := c.rdb.Del(ctx, contextKeyPrefix+conversationID).Err(); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}
	return nil
}

// Ping checks Redis reachability.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
