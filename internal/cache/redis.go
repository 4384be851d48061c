package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-redis/redis/v8"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisCache is a Redis-backed ResponseCache, which lets the slot survive
// service restarts.
type RedisCache struct {
	client *redis.Client
	key    string
}

// NewRedisCache creates a new RedisCache.
func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: rdb, key: lastResponseKey}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Last returns the stored entry. Redis errors count as a miss.
func (c *RedisCache) Last(ctx context.Context) (Entry, bool) {
	val, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false
	} else if err != nil {
		slog.Warn("Redis GET failed, treating as cache miss", "error", err)
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		slog.Warn("Discarding undecodable cache entry", "error", err)
		return Entry{}, false
	}
	return entry, true
}

// Store replaces the stored entry. Failures are logged.
func (c *RedisCache) Store(ctx context.Context, entry Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("Error encoding cache entry", "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key, data, 0).Err(); err != nil {
		slog.Error("Redis SET failed", "error", err)
	}
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
