package app

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/goflare/flare/router"
)

const (
	cacheShardCount   = 16
	cacheShardEntries = 64 // 16 * 64 = 1024 entries total
)

// routeCache memoizes resolved routes with empty per-route middleware, keyed
// by "METHOD|path". It is sharded by xxhash so readers almost never contend;
// stale entries are harmless because routes are immutable after start.
// Capacity is bounded per shard with random eviction.
type routeCache struct {
	shards [cacheShardCount]cacheShard
}

type cacheShard struct {
	mu sync.RWMutex
	m  map[string]*router.Route
}

func newRouteCache() *routeCache {
	c := &routeCache{}
	for i := range c.shards {
		c.shards[i].m = make(map[string]*router.Route, cacheShardEntries)
	}
	return c
}

func (c *routeCache) shard(key string) *cacheShard {
	return &c.shards[xxhash.Sum64String(key)%cacheShardCount]
}

func (c *routeCache) get(key string) (*router.Route, bool) {
	s := c.shard(key)
	s.mu.RLock()
	r, ok := s.m[key]
	s.mu.RUnlock()
	return r, ok
}

func (c *routeCache) put(key string, r *router.Route) {
	s := c.shard(key)
	s.mu.Lock()
	if len(s.m) >= cacheShardEntries {
		// Random eviction: map iteration order is unspecified, the first
		// key seen is as random as this needs to be.
		for k := range s.m {
			delete(s.m, k)
			break
		}
	}
	s.m[key] = r
	s.mu.Unlock()
}

func (c *routeCache) len() int {
	total := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		total += len(c.shards[i].m)
		c.shards[i].mu.RUnlock()
	}
	return total
}
