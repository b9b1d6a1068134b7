package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitWindow(t *testing.T) {
	now := time.Unix(1_700_000_030, 0)

	key, reset := rateLimitWindow("10.0.0.1", now, time.Minute)
	assert.Equal(t, "rate_limit:10.0.0.1:28333333", key)
	assert.Equal(t, time.Unix(1_700_000_040, 0), reset)

	// same window, same key
	next, _ := rateLimitWindow("10.0.0.1", now.Add(9*time.Second), time.Minute)
	assert.Equal(t, key, next)

	// next window, new key
	later, _ := rateLimitWindow("10.0.0.1", now.Add(10*time.Second), time.Minute)
	assert.NotEqual(t, key, later)
}

func TestRateLimitWindow_SubSecond(t *testing.T) {
	now := time.Unix(100, 0)

	key, reset := rateLimitWindow("k", now, 10*time.Millisecond)
	assert.Equal(t, "rate_limit:k:100", key)
	assert.Equal(t, time.Unix(101, 0), reset)
}

func TestKeyPrefix(t *testing.T) {
	c := &RedisCache{keyPrefix: "ransomguard:"}
	assert.Equal(t, "ransomguard:cache:stats", c.key(KeyStats))
}
