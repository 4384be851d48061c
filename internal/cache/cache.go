package cache

import (
	"context"
	"fmt"
)

// lastResponseKey is the only key of the response slot.
const lastResponseKey = "yts:last_response"

// Entry is the last prompt generated and the URL it was generated for.
type Entry struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// ResponseCache is a single slot holding the most recent prompt.
// Store overwrites whatever was there.
type ResponseCache interface {
	Last(ctx context.Context) (Entry, bool)
	Store(ctx context.Context, entry Entry)
}

// NewResponseCache builds the slot for the configured backend ("memory" or "redis").
func NewResponseCache(ctx context.Context, backend, redisAddr, redisPassword string, redisDB int) (ResponseCache, error) {
	switch backend {
	case "", "memory":
		return NewMemoryCache(), nil
	case "redis":
		rc := NewRedisCache(redisAddr, redisPassword, redisDB)
		if err := rc.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis at %s unreachable: %w", redisAddr, err)
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", backend)
	}
}
