package cache

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Cache memoizes oracle quotes between reads. Entries expire on their own
// TTL; a miss means the caller goes back to the feed.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte, ttl time.Duration)
}

type memory struct {
	mu sync.Mutex
	m  map[string]entry
}

type entry struct {
	b   []byte
	exp time.Time
}

// NewMemory returns an in-process TTL cache.
func NewMemory() Cache { return &memory{m: make(map[string]entry)} }

func (c *memory) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok || (!e.exp.IsZero() && time.Now().After(e.exp)) {
		delete(c.m, key)
		return nil, false
	}
	return e.b, true
}

func (c *memory) Set(key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entry{b: append([]byte(nil), val...)}
	if ttl > 0 {
		e.exp = time.Now().Add(ttl)
	}
	c.m[key] = e
}

type redisCache struct{ r *redis.Client }

// New selects the backend by address: a Redis cache when addr is set,
// otherwise in-process memory.
func New(addr string) Cache {
	if addr == "" {
		return NewMemory()
	}
	return &redisCache{r: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *redisCache) Get(key string) ([]byte, bool) {
	b, err := c.r.Get(context.Background(), key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *redisCache) Set(key string, val []byte, ttl time.Duration) {
	c.r.Set(context.Background(), key, val, ttl)
}
