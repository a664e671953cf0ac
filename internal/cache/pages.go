package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mifthebest/hw05-final/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// HomePageTTL is how long the rendered home page is served without
// re-executing its handler. Posts published within the window appear
// once it expires.
const HomePageTTL = 20 * time.Second

const pageKeyPrefix = "page:"

// PageCache memoizes fully rendered responses keyed by route and query string.
type PageCache interface {
	// Get returns the cached body for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores body under key for ttl.
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// RedisPageCache stores rendered pages in Redis so the cache is shared
// across processes.
type RedisPageCache struct {
	client *redis.Client
}

// NewRedisPageCache creates a PageCache over the given Redis client.
func NewRedisPageCache(client *redis.Client) *RedisPageCache {
	return &RedisPageCache{client: client}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, pageKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			middleware.RedisErrors.WithLabelValues("get").Inc()
		}
		middleware.PageCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	middleware.PageCacheHits.WithLabelValues("hit").Inc()
	return body, true
}

func (c *RedisPageCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	// Best effort: a failed write only costs a re-render.
	_ = c.client.Set(ctx, pageKeyPrefix+key, body, ttl).Err()
}

type memoryPageEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryPageCache is the in-process fallback used when Redis is not
// configured, and in tests.
type MemoryPageCache struct {
	mu      sync.Mutex
	entries map[string]memoryPageEntry
	now     func() time.Time
}

// NewMemoryPageCache creates an empty in-process page cache.
func NewMemoryPageCache() *MemoryPageCache {
	return &MemoryPageCache{
		entries: make(map[string]memoryPageEntry),
		now:     time.Now,
	}
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		middleware.PageCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	middleware.PageCacheHits.WithLabelValues("hit").Inc()
	return entry.body, true
}

func (c *MemoryPageCache) Set(_ context.Context, key string, body []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := make([]byte, len(body))
	copy(buf, body)
	c.entries[key] = memoryPageEntry{body: buf, expiresAt: c.now().Add(ttl)}
}
