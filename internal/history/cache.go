// Package history caches per-user conversation context so repeat chat
// requests do not re-query the audit log. The cache is strictly an
// optimization: every path works identically with it disabled.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/yourusername/chatguard/internal/upstream"
)

const keyPrefix = "chatguard:ctx:"

// Config contains Redis cache configuration.
type Config struct {
	RedisURL string
	TTL      time.Duration
}

// Cache is a Redis-backed conversation-context cache. A nil *Cache is valid
// and behaves as a permanent miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg *Config, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Context cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Duration("ttl", cfg.TTL),
	)

	return &Cache{client: client, ttl: cfg.TTL, logger: logger}, nil
}

// cachedContext is the stored shape; limit is part of the key material so a
// larger request never gets a truncated context.
type cachedContext struct {
	Turns []upstream.Turn `json:"turns"`
}

// Get returns the cached context for (userID, limit), or miss. Lookup
// failures degrade to a miss, never to an error for the caller.
func (c *Cache) Get(ctx context.Context, userID string, limit int) ([]upstream.Turn, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, contextKey(userID, limit)).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		c.logger.Warn("context cache lookup failed", zap.Error(err))
		return nil, false
	}

	var cached cachedContext
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		c.logger.Warn("corrupt context cache entry dropped", zap.Error(err))
		c.client.Del(ctx, contextKey(userID, limit))
		return nil, false
	}
	return cached.Turns, true
}

// Set stores the context for (userID, limit) with the configured TTL.
func (c *Cache) Set(ctx context.Context, userID string, limit int, turns []upstream.Turn) {
	if c == nil {
		return
	}

	data, err := json.Marshal(cachedContext{Turns: turns})
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, contextKey(userID, limit), data, c.ttl).Err(); err != nil {
		c.logger.Warn("context cache write failed", zap.Error(err))
	}
}

// Invalidate drops every cached context for the user. Called after an append
// or delete changes the user's history.
func (c *Cache) Invalidate(ctx context.Context, userID string) {
	if c == nil {
		return
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+userID+":*", 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("context cache invalidation failed", zap.Error(err))
	}
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func contextKey(userID string, limit int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, userID, limit)
}

// maskRedisURL hides credentials before the URL reaches a log line.
func maskRedisURL(redisURL string) string {
	u, err := url.Parse(redisURL)
	if err != nil || u.User == nil {
		return redisURL
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
