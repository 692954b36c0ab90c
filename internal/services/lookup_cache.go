package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// LookupCache holds nutrition answers keyed by normalized query.
type LookupCache interface {
	Get(ctx context.Context, key string) (FoodInfo, bool)
	Set(ctx context.Context, key string, v FoodInfo, ttl time.Duration)
}

type lookupCacheEntry struct {
	Info      FoodInfo
	ExpiresAt time.Time
}

type inMemoryLookupCache struct {
	mu    sync.RWMutex
	store map[string]lookupCacheEntry
	now   func() time.Time
}

func NewInMemoryLookupCache() LookupCache {
	return &inMemoryLookupCache{store: make(map[string]lookupCacheEntry), now: time.Now}
}

func (c *inMemoryLookupCache) Get(_ context.Context, key string) (FoodInfo, bool) {
	c.mu.RLock()
	it, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return FoodInfo{}, false
	}
	if c.now().After(it.ExpiresAt) {
		c.mu.Lock()
		if cur, still := c.store[key]; still && cur.ExpiresAt.Equal(it.ExpiresAt) {
			delete(c.store, key)
		}
		c.mu.Unlock()
		return FoodInfo{}, false
	}
	return it.Info, true
}

func (c *inMemoryLookupCache) Set(_ context.Context, key string, v FoodInfo, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = lookupCacheEntry{Info: v, ExpiresAt: c.now().Add(ttl)}
}

// redisLookupCache shares answers between bot replicas. Redis errors degrade
// to cache misses.
type redisLookupCache struct {
	client *redis.Client
	prefix string
}

func NewRedisLookupCache(client *redis.Client, prefix string) LookupCache {
	return &redisLookupCache{client: client, prefix: prefix}
}

func (c *redisLookupCache) Get(ctx context.Context, key string) (FoodInfo, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return FoodInfo{}, false
	}
	var info FoodInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return FoodInfo{}, false
	}
	return info, true
}

func (c *redisLookupCache) Set(ctx context.Context, key string, v FoodInfo, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, raw, ttl)
}
