package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ransomguard/internal/config"
	"ransomguard/internal/domain/models"
	"ransomguard/pkg/logger"
)

// Cache key constants
const (
	KeyStats           = "cache:stats"
	KeyRateLimitPrefix = "rate_limit:"
)

// RedisCache wraps the Redis client with typed operations
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	statsTTL  time.Duration
	logger    *logger.Logger
}

// NewRedis creates a new Redis client
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		statsTTL:  cfg.StatsTTL,
		logger:    log,
	}, nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// GetJSON retrieves and unmarshals a JSON value from cache
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.client.Get(ctx, c.key(key)).Result()
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

// SetJSON marshals and stores a value in cache
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes keys from cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	prefixedKeys := make([]string, len(keys))
	for i, k := range keys {
		prefixedKeys[i] = c.key(k)
	}
	return c.client.Del(ctx, prefixedKeys...).Err()
}

// CachedStats returns the cached dashboard stats. A cache miss is (nil, nil).
func (c *RedisCache) CachedStats(ctx context.Context) (*models.ScanStats, error) {
	var stats models.ScanStats
	if err := c.GetJSON(ctx, KeyStats, &stats); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return &stats, nil
}

// CacheStats stores the dashboard stats for the configured TTL
func (c *RedisCache) CacheStats(ctx context.Context, stats *models.ScanStats) error {
	return c.SetJSON(ctx, KeyStats, stats, c.statsTTL)
}

// InvalidateStats drops the cached dashboard stats
func (c *RedisCache) InvalidateStats(ctx context.Context) error {
	return c.Delete(ctx, KeyStats)
}

// CheckRateLimit checks and increments the rate limit counter
// Returns (allowed, remaining, resetTime, error)
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	now := time.Now()
	windowKey, resetTime := rateLimitWindow(key, now, window)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, c.key(windowKey))
	pipe.Expire(ctx, c.key(windowKey), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := incr.Val()
	remaining := max(limit-count, 0)

	return count <= limit, remaining, resetTime, nil
}

// rateLimitWindow returns the fixed-window counter key for now and the time the window ends
func rateLimitWindow(key string, now time.Time, window time.Duration) (string, time.Time) {
	size := int64(window / time.Second)
	if size <= 0 {
		size = 1
	}
	slot := now.Unix() / size
	return fmt.Sprintf("%s%s:%d", KeyRateLimitPrefix, key, slot), time.Unix((slot+1)*size, 0)
}
