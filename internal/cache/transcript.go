package cache

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
)

const shardCount = 16 // Must be a power of 2.

// TranscriptCache keeps rendered transcripts for a while so that requests for
// the same video under a different URL do not transcribe it again.
type TranscriptCache struct {
	shards []*cache.Cache
	ttl    time.Duration
}

// NewTranscriptCache creates a TranscriptCache whose entries live for ttl.
func NewTranscriptCache(ttl time.Duration) *TranscriptCache {
	c := &TranscriptCache{
		shards: make([]*cache.Cache, shardCount),
		ttl:    ttl,
	}
	for i := 0; i < shardCount; i++ {
		c.shards[i] = cache.New(ttl, 2*ttl)
	}
	return c
}

// TranscriptKey identifies a transcript by video, method and model.
func TranscriptKey(videoID, method, model string) string {
	return strconv.FormatUint(xxhash.Sum64String(videoID+"|"+method+"|"+model), 16)
}

func (c *TranscriptCache) getShard(key string) *cache.Cache {
	return c.shards[xxhash.Sum64String(key)&(shardCount-1)]
}

// Get returns the cached transcript for key.
func (c *TranscriptCache) Get(key string) (string, bool) {
	if val, found := c.getShard(key).Get(key); found {
		if text, ok := val.(string); ok {
			return text, true
		}
	}
	return "", false
}

// Set stores a transcript under key.
func (c *TranscriptCache) Set(key, text string) {
	c.getShard(key).Set(key, text, c.ttl)
}
